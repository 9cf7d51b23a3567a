package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command: local log and sync state
// at a glance.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "status",
		Short:         "Show local log and sync status",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			all, err := a.store.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			pending, err := a.store.ListPending(cmd.Context())
			if err != nil {
				return err
			}

			state := a.dispatcher.State()

			table := uitable.New()
			table.AddRow("Context:", a.store.Context())
			table.AddRow("Events:", fmt.Sprintf("%d (%d pending)", len(all), len(pending)))
			table.AddRow("Entries:", fmt.Sprintf("%d", len(state.Log)))
			table.AddRow("Favourites:", fmt.Sprintf("%d", len(state.Favourites)))

			if a.cfg.SpreadsheetID == "" {
				table.AddRow("Remote:", "not configured")
			} else {
				table.AddRow("Remote:", a.cfg.SpreadsheetID)
				cur, err := a.syncer.Cursor()
				if err != nil {
					return err
				}
				table.AddRow("Cursor:", fmt.Sprintf("row %d", cur.LastSyncedRow))
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)

			if len(pending) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("%d event(s) waiting to sync.", len(pending)))
			}
			return nil
		},
	}
	return cmd
}
