package commands

import (
	"fmt"
	"spotify-charts/internal/aggregate"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	trendsTop    int
	trendsInput  *inputFlags
	trendsFilter *filterFlags
)

func init() {
	trendsCmd.Flags().IntVar(&trendsTop, "top", 20, "Number of series to show, 0 shows all of them.")
	trendsInput = addInputFlags(trendsCmd)
	trendsFilter = addFilterFlags(trendsCmd)
	rootCmd.AddCommand(trendsCmd)
}

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Summarizes every (track, region, view) series: totals, peaks and best ranks.",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := trendsFilter.build(cmd)
		if err != nil {
			return err
		}
		obs, err := trendsInput.load(cmd)
		if err != nil {
			return err
		}

		trends := aggregate.Trends(envOf(cmd).applyFilter(aggregate.Aggregate(obs), filter))
		if len(trends) == 0 {
			fmt.Println("no data")
			return nil
		}
		if trendsTop > 0 && len(trends) > trendsTop {
			trends = trends[:trendsTop]
		}

		t := NewTable()
		t.AppendHeader(table.Row{
			"Title", "Artist", "Region", "View", "From", "To", "Charted",
			"Total", "Average", "Peak", "Peak date", "Best rank", "Best rank date",
		})
		for _, trend := range trends {
			t.AppendRow(table.Row{
				trend.Title,
				trend.Artist,
				trend.Region,
				trend.View,
				trend.FirstDate,
				trend.LastDate,
				fmt.Sprintf("%d/%d", trend.Charted, trend.Rows),
				trend.TotalStreams,
				fmt.Sprintf("%.0f", trend.AverageStreams),
				formatOptional(trend.PeakStreams),
				formatDate(trend.PeakStreamsDate),
				formatOptional(trend.BestRank),
				formatDate(trend.BestRankDate),
			})
		}
		t.Render()
		return nil
	},
}
