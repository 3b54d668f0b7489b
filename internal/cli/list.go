package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"taskpad/internal/task"
)

func newListCmd(a *app) *cobra.Command {
	var status, priority, sortBy, order string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print tasks matching the given filters",
		Args:  cobra.NoArgs,
		RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
			base := a.vm.Filters()
			f, err := task.ParseFilters(
				pick(status, string(base.Status)),
				pick(priority, string(base.Priority)),
				pick(sortBy, string(base.SortBy)),
				pick(order, string(base.SortOrder)),
			)
			if err != nil {
				return err
			}
			if err := a.vm.ApplyFilters(f); err != nil {
				return err
			}

			a.vm.Load(cmd.Context())
			if msg := a.vm.Err(); msg != "" {
				return errors.New(msg)
			}
			printTasks(cmd.OutOrStdout(), a.vm.Visible())
			return nil
		}),
	}

	cmd.Flags().StringVar(&status, "status", "", "all, pending or completed")
	cmd.Flags().StringVar(&priority, "priority", "", "all, low, medium or high")
	cmd.Flags().StringVar(&sortBy, "sort", "", "name, priority or createdAt")
	cmd.Flags().StringVar(&order, "order", "", "asc or desc")
	return cmd
}

func pick(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}

func printTasks(w io.Writer, tasks []task.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return
	}
	for _, t := range tasks {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		fmt.Fprintf(w, "[%s] %-6s  %s  %s\n", mark, t.Priority, t.CreatedAt.Local().Format("2006-01-02 15:04"), t.Title)
	}
}
