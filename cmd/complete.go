package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var completeCmd = &cobra.Command{
	Use:   "complete <habit-id>",
	Short: "Record a completion for a habit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, err := newClient(cfg).AddCompletion(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("record completion: %w", err)
		}
		cmd.Printf("Logged %s at %s\n", c.HabitID, c.CompletedAt.Format("2006-01-02 15:04"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completeCmd)
}
