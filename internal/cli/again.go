package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/platelog/internal/event"
)

// NewAgainCommand creates the again command: re-log a previous entry and
// bump it in the favourites catalog.
func NewAgainCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "again <entry-id>",
		Short:         "Log a previous entry again",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			entry, ok := a.dispatcher.State().Entry(args[0])
			if !ok {
				return fmt.Errorf("no entry with id %s", args[0])
			}

			if _, err := a.dispatcher.Dispatch(cmd.Context(), event.KindLogAgain,
				event.LogAgain{
					Description:   entry.Description,
					SourceEntryID: entry.ID,
					Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
				}); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added %q to favourites\n", entry.Description)
			a.syncer.Sync(cmd.Context())
			reportSyncOutcome(cmd, a)
			return nil
		},
	}
	return cmd
}
