package cmd

import (
	"os"

	"github.com/brk3/steady/internal/apiclient"
	"github.com/brk3/steady/internal/config"
	"github.com/spf13/cobra"
)

var (
	configPath string
	timezone   string
)

var rootCmd = &cobra.Command{
	Use:   "steady",
	Short: "Track habits and keep streaks alive",
	Long: `
	Steady tracks recurring habits and time-boxed challenges. The server derives
	each habit's status, streak and progress from its completion log; the client
	commands talk to it over HTTP.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $HABITS_CONFIG or config.yaml)")
	rootCmd.PersistentFlags().StringVar(&timezone, "tz", "", "IANA timezone used to decide what \"today\" is")
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		os.Setenv("HABITS_CONFIG", configPath)
	}
	return config.Load()
}

func newClient(cfg *config.Config) *apiclient.Client {
	c := apiclient.New(cfg.APIBaseURL, cfg.APIKey)
	c.Timezone = timezone
	return c
}
