package commands

import (
	"fmt"
	"spotify-charts/internal/aggregate"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	totalsInput  *inputFlags
	totalsFilter *filterFlags
)

func init() {
	totalsInput = addInputFlags(totalsCmd)
	totalsFilter = addFilterFlags(totalsCmd)
	rootCmd.AddCommand(totalsCmd)
}

var totalsCmd = &cobra.Command{
	Use:   "totals",
	Short: "Prints the total streams and the mean stream delta of every date.",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := totalsFilter.build(cmd)
		if err != nil {
			return err
		}
		obs, err := totalsInput.load(cmd)
		if err != nil {
			return err
		}

		totals := aggregate.DailyTotals(envOf(cmd).applyFilter(aggregate.Aggregate(obs), filter))
		if len(totals) == 0 {
			fmt.Println("no data")
			return nil
		}

		t := NewTable()
		t.AppendHeader(table.Row{"Date", "Day", "View", "Rows", "Streams", "Mean delta", "Weekend"})
		for _, total := range totals {
			t.AppendRow(table.Row{
				total.Date,
				total.DayOfWeek,
				total.View,
				total.Rows,
				total.TotalStreams,
				fmt.Sprintf("%.1f", total.MeanStreamDelta),
				total.IsWeekend,
			})
		}
		t.Render()
		return nil
	},
}
