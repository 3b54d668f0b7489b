package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errPurgeNotConfirmed = errors.New("refusing to delete every task without --yes")

func newPurgeCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every stored task",
		Args:  cobra.NoArgs,
		RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errPurgeNotConfirmed
			}
			if err := a.store.ClearAllTasks(cmd.Context()); err != nil {
				return err
			}
			a.log.WithField("path", a.store.Path()).Info("all tasks purged")
			fmt.Fprintln(cmd.OutOrStdout(), "All tasks deleted.")
			return nil
		}),
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deleting every task")
	return cmd
}
