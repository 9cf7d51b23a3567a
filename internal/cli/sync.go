package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewSyncCommand creates the sync command: run one reconciliation cycle.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sync",
		Short:         "Push pending entries and pull new remote events",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := requireRemote(a); err != nil {
				return err
			}

			a.syncer.Sync(cmd.Context())
			if msg := a.syncer.SyncError(); msg != "" {
				return fmt.Errorf("sync failed: %s", msg)
			}

			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Sync complete."))
			return nil
		},
	}
	return cmd
}

// reportSyncOutcome prints the opportunistic post-write sync result
// without failing the command - the write itself already succeeded
// locally, and pending events go out on the next connected cycle.
func reportSyncOutcome(cmd *cobra.Command, a *app) {
	if msg := a.syncer.SyncError(); msg != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("Sync pending: %s", msg))
	}
}
