package commands

import (
	"spotify-charts/internal/aggregate"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	aggregateOut    string
	aggregatePrint  int
	aggregateInput  *inputFlags
	aggregateFilter *filterFlags
)

func init() {
	aggregateCmd.Flags().StringVarP(&aggregateOut, "out", "o", "charts.csv", "Output CSV.")
	aggregateCmd.Flags().IntVar(&aggregatePrint, "print", 0, "Also print the first n rows.")
	aggregateInput = addInputFlags(aggregateCmd)
	aggregateFilter = addFilterFlags(aggregateCmd)
	rootCmd.AddCommand(aggregateCmd)
}

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Merges previously collected observations, recomputes the metrics and filters them.",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := aggregateFilter.build(cmd)
		if err != nil {
			return err
		}
		obs, err := aggregateInput.load(cmd)
		if err != nil {
			return err
		}

		rows := envOf(cmd).applyFilter(aggregate.Aggregate(obs), filter)
		if aggregatePrint > 0 && len(rows) > 0 {
			t := NewTable()
			t.AppendHeader(table.Row{"Date", "Track", "Title", "Region", "View", "Rank", "Streams", "Delta", "Change %", "Weekend"})
			for _, row := range rows[:min(aggregatePrint, len(rows))] {
				t.AppendRow(table.Row{
					row.Date,
					row.TrackID,
					row.Title,
					row.Region,
					row.View,
					formatOptional(row.Rank),
					formatOptional(row.Streams),
					row.StreamDelta,
					formatPercent(row.StreamPercentChange),
					row.IsWeekend,
				})
			}
			t.Render()
		}

		return writeOutput(aggregateOut, rows)
	},
}
