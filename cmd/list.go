package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/brk3/steady/pkg/habit"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List habits",
	Long:  `The "list" command shows each active habit with its status, streak and next occurrence.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		summary, err := newClient(cfg).Summary(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetch habits: %w", err)
		}
		return printSummary(cmd.OutOrStdout(), summary)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func printSummary(out io.Writer, s habit.Summary) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tSTREAK\tPROGRESS\tNEXT")
	for _, v := range s.Habits {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d/%d\t%s\n",
			v.ID, v.Name, v.Status, v.Streak, v.Progress.Current, v.Progress.Total, v.NextOccurrence)
	}
	fmt.Fprintf(tw, "\n%d active of %d habits\n", s.Active, s.Total)
	return tw.Flush()
}
