package cmd

import (
	"fmt"

	"github.com/brk3/steady/internal/nudge"
	"github.com/brk3/steady/internal/nudge/resend"
	"github.com/spf13/cobra"
)

var nudgeCmd = &cobra.Command{
	Use:   "nudge",
	Short: "Email a reminder for streaks that break unless checked in today",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Nudge.ResendAPIKey == "" {
			return fmt.Errorf("HABITS_RESEND_API_KEY environment variable is not set")
		}
		if cfg.Nudge.To == "" {
			return fmt.Errorf("HABITS_NOTIFY_EMAIL environment variable is not set")
		}

		n := &resend.ResendNotifier{
			ApiKey: cfg.Nudge.ResendAPIKey,
			From:   cfg.Nudge.From,
			To:     cfg.Nudge.To,
		}
		sent, err := nudge.Nudge(cmd.Context(), newClient(cfg), n)
		if err != nil {
			return err
		}
		cmd.Printf("Nudged %d habit(s)\n", sent)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(nudgeCmd)
}
