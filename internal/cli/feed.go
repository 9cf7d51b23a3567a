package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/roach88/platelog/internal/grouping"
)

// NewFeedCommand creates the feed command: the day's entries clustered
// into meal and snack cards.
func NewFeedCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "feed [date]",
		Short:         "Show the day's grouped food feed",
		Long:          "Show the feed for a business day (the day boundary is 4 AM, so a 1 AM snack belongs to the previous day). Date defaults to today.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			date := grouping.BusinessDate(time.Now())
			if len(args) == 1 {
				if _, err := time.Parse("2006-01-02", args[0]); err != nil {
					return fmt.Errorf("invalid date %q: want YYYY-MM-DD", args[0])
				}
				date = args[0]
			}

			state := a.dispatcher.State()
			entries := grouping.FilterBusinessDate(state.Log, date)
			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Nothing logged on %s.\n", date)
				return nil
			}

			groups := grouping.Group(entries)

			bold := color.New(color.Bold)
			fmt.Fprintln(cmd.OutOrStdout(), bold.Sprintf("Feed for %s", date))

			table := uitable.New()
			table.MaxColWidth = 50
			table.AddRow("TIME", "GROUP", "ITEMS", "KCAL", "P", "F", "C")
			for _, g := range groups {
				span := g.StartTime
				if g.EndTime != g.StartTime {
					span = fmt.Sprintf("%s-%s", g.StartTime, g.EndTime)
				}
				title := g.Title
				if g.Type == grouping.TypeSnack && len(g.Items) > 1 {
					title = fmt.Sprintf("%s ×%d", g.Title, len(g.Items))
				}
				table.AddRow(span, title, describeItems(g), fmt.Sprintf("%.0f", g.Calories),
					fmt.Sprintf("%.0fg", g.Protein), fmt.Sprintf("%.0fg", g.Fat), fmt.Sprintf("%.0fg", g.Carbs))
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)

			if stat, ok := state.Stats[date]; ok {
				protein, fat, carbs := state.Settings.MacroTargetsGrams()
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s %.0f / %.0f kcal  ·  P %.0f/%dg  F %.0f/%dg  C %.0f/%dg\n",
					bold.Sprint("Total:"),
					stat.TotalCalories, state.Settings.TargetCalories,
					stat.TotalProtein, protein,
					stat.TotalFat, fat,
					stat.TotalCarbs, carbs)
			}
			return nil
		},
	}
	return cmd
}

func describeItems(g grouping.ActivityGroup) string {
	if len(g.Items) == 1 {
		return g.Items[0].Description
	}
	out := g.Items[0].Description
	for _, item := range g.Items[1:] {
		out += ", " + item.Description
	}
	return out
}
