package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/platelog/internal/event"
)

// entryFlags covers the editable fields of a log entry, shared by add
// and update.
type entryFlags struct {
	Date        string
	Time        string
	Meal        string
	Description string
	Calories    float64
	Protein     float64
	Fat         float64
	Carbs       float64
	Image       string
}

func (f *entryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Date, "date", "", "entry date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&f.Time, "time", "", "entry time HH:MM (default now)")
	cmd.Flags().StringVar(&f.Meal, "meal", "Snack", "meal type (Breakfast|Lunch|Dinner|Snack)")
	cmd.Flags().StringVar(&f.Description, "desc", "", "what was eaten")
	cmd.Flags().Float64Var(&f.Calories, "calories", 0, "calories (kcal)")
	cmd.Flags().Float64Var(&f.Protein, "protein", 0, "protein (g)")
	cmd.Flags().Float64Var(&f.Fat, "fat", 0, "fat (g)")
	cmd.Flags().Float64Var(&f.Carbs, "carbs", 0, "carbs (g)")
	cmd.Flags().StringVar(&f.Image, "image", "", "image URL")
}

// NewLogCommand creates the log command group: add, update, delete.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Record, edit, or remove food entries",
	}
	cmd.AddCommand(newLogAddCommand(rootOpts))
	cmd.AddCommand(newLogUpdateCommand(rootOpts))
	cmd.AddCommand(newLogDeleteCommand(rootOpts))
	return cmd
}

func newLogAddCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &entryFlags{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a food entry",
		Example: `  platelog log add --desc "Oatmeal with berries" --meal Breakfast \
    --calories 320 --protein 12 --fat 6 --carbs 54`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.Description == "" {
				return fmt.Errorf("--desc is required")
			}

			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			now := time.Now()
			date, clock := flags.Date, flags.Time
			if date == "" {
				date = now.Format("2006-01-02")
			}
			if clock == "" {
				clock = now.Format("15:04")
			}

			entry := event.LogEntry{
				ID:            uuid.NewString(),
				Date:          date,
				Time:          clock,
				MealType:      flags.Meal,
				Description:   flags.Description,
				Calories:      event.Number(flags.Calories),
				Protein:       event.Number(flags.Protein),
				Fat:           event.Number(flags.Fat),
				Carbs:         event.Number(flags.Carbs),
				ImageDriveURL: flags.Image,
			}

			if _, err := a.dispatcher.Dispatch(cmd.Context(), event.KindEntryConfirmed,
				event.EntryConfirmed{Entry: entry}); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged %q (%s)\n", entry.Description, entry.ID)
			a.syncer.Sync(cmd.Context())
			reportSyncOutcome(cmd, a)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newLogUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &entryFlags{}

	cmd := &cobra.Command{
		Use:           "update <entry-id>",
		Short:         "Edit fields of an existing entry",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			entryID := args[0]
			if _, ok := a.dispatcher.State().Entry(entryID); !ok {
				return fmt.Errorf("no entry with id %s", entryID)
			}

			// Only explicitly set flags become changes; everything else
			// keeps its current value.
			changes := event.EntryChanges{}
			if cmd.Flags().Changed("date") {
				changes.Date = &flags.Date
			}
			if cmd.Flags().Changed("time") {
				changes.Time = &flags.Time
			}
			if cmd.Flags().Changed("meal") {
				changes.MealType = &flags.Meal
			}
			if cmd.Flags().Changed("desc") {
				changes.Description = &flags.Description
			}
			if cmd.Flags().Changed("calories") {
				n := event.Number(flags.Calories)
				changes.Calories = &n
			}
			if cmd.Flags().Changed("protein") {
				n := event.Number(flags.Protein)
				changes.Protein = &n
			}
			if cmd.Flags().Changed("fat") {
				n := event.Number(flags.Fat)
				changes.Fat = &n
			}
			if cmd.Flags().Changed("carbs") {
				n := event.Number(flags.Carbs)
				changes.Carbs = &n
			}
			if cmd.Flags().Changed("image") {
				changes.ImageDriveURL = &flags.Image
			}

			if _, err := a.dispatcher.Dispatch(cmd.Context(), event.KindEntryUpdated,
				event.EntryUpdated{EntryID: entryID, Changes: changes}); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", entryID)
			a.syncer.Sync(cmd.Context())
			reportSyncOutcome(cmd, a)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newLogDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "delete <entry-id>",
		Short:         "Remove an entry",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			entryID := args[0]
			if _, ok := a.dispatcher.State().Entry(entryID); !ok {
				return fmt.Errorf("no entry with id %s", entryID)
			}

			if _, err := a.dispatcher.Dispatch(cmd.Context(), event.KindEntryDeleted,
				event.EntryDeleted{EntryID: entryID}); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", entryID)
			a.syncer.Sync(cmd.Context())
			reportSyncOutcome(cmd, a)
			return nil
		},
	}
	return cmd
}
