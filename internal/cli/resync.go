package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewResyncCommand creates the resync command: the destructive recovery
// path for states automatic reconciliation cannot self-heal.
func NewResyncCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "resync",
		Short: "Discard the synced local cache and re-pull the full remote log",
		Long: `Reset the sync cursor, delete every locally cached synced event, and
re-pull the entire remote log from row 1.

Pending (unsynced) local entries are never deleted; they survive the
reset and push on the next cycle.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("resync discards the local synced cache; re-run with --yes to confirm")
			}

			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := requireRemote(a); err != nil {
				return err
			}

			if err := a.syncer.HardResync(cmd.Context()); err != nil {
				return err
			}
			if msg := a.syncer.SyncError(); msg != "" {
				return fmt.Errorf("resync: %s", msg)
			}

			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Resync complete."))
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the destructive reset")
	return cmd
}
