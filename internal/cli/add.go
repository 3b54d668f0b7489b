package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"taskpad/internal/task"
)

func newAddCmd(a *app) *cobra.Command {
	var priority string
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
			p, err := task.ParsePriority(priority)
			if err != nil {
				return err
			}
			t, err := a.vm.Add(cmd.Context(), strings.Join(args, " "), p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", t.Title, t.Priority)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&priority, "priority", "p", string(task.PriorityMedium), "low, medium or high")
	return cmd
}
