package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"taskpad/internal/task"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the task list",
		Args:  cobra.NoArgs,
		RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
			a.vm.Load(cmd.Context())
			if msg := a.vm.Err(); msg != "" {
				return errors.New(msg)
			}
			s := a.vm.Stats()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Total:     %d\n", s.Total)
			fmt.Fprintf(w, "Completed: %d (%d%%)\n", s.Completed, s.CompletionRate())
			fmt.Fprintf(w, "Pending:   %d\n", s.Pending)
			for _, p := range []task.Priority{task.PriorityHigh, task.PriorityMedium, task.PriorityLow} {
				fmt.Fprintf(w, "  %-7s  %d\n", p, s.ByPriority[p])
			}
			return nil
		}),
	}
}
