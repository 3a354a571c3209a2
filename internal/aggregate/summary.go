package aggregate

import (
	"cmp"
	"slices"
	"spotify-charts/internal/chart"

	"github.com/samber/lo"
)

// DailyTotal sums a table per (view, date).
type DailyTotal struct {
	Date chart.Date
	View chart.View
	// Rows is the number of rows for the date, including the ones without streams.
	Rows         int
	TotalStreams int64
	// MeanStreamDelta averages StreamDelta over every row of the date.
	MeanStreamDelta float64
	DayOfWeek       string
	IsWeekend       bool
}

type dayKey struct {
	view chart.View
	date chart.Date
}

// DailyTotals returns one total per (view, date) present in the table, ordered by view
// then date.
func DailyTotals(table Table) []DailyTotal {
	groups := lo.GroupBy(table, func(r Row) dayKey {
		return dayKey{view: r.View, date: r.Date}
	})

	out := make([]DailyTotal, 0, len(groups))
	for key, rows := range groups {
		total := DailyTotal{
			Date:      key.date,
			View:      key.view,
			Rows:      len(rows),
			DayOfWeek: key.date.Weekday().String(),
			IsWeekend: isWeekend(key.date.Weekday()),
		}
		total.TotalStreams = lo.SumBy(rows, func(r Row) int64 {
			return lo.FromPtr(r.Streams)
		})
		total.MeanStreamDelta = float64(lo.SumBy(rows, func(r Row) int64 {
			return r.StreamDelta
		})) / float64(len(rows))
		out = append(out, total)
	}

	slices.SortFunc(out, func(a, b DailyTotal) int {
		return cmp.Or(cmp.Compare(a.View, b.View), a.Date.Compare(b.Date))
	})
	return out
}

// Trend summarizes a single series.
type Trend struct {
	SeriesKey
	Title     string
	Artist    string
	FirstDate chart.Date
	LastDate  chart.Date
	// Rows counts every observation of the series, Charted only the ranked ones.
	Rows    int
	Charted int

	TotalStreams int64
	// AverageStreams is taken over the observations that have a stream count.
	AverageStreams  float64
	PeakStreams     *int64
	PeakStreamsDate chart.Date
	BestRank        *int
	BestRankDate    chart.Date
	// NetChange is the sum of the stream deltas of the series.
	NetChange int64
}

// Trends returns one trend per series, the series with the most streams first.
func Trends(table Table) []Trend {
	groups := lo.GroupBy(table, func(r Row) SeriesKey {
		return seriesOf(r.Observation)
	})

	out := make([]Trend, 0, len(groups))
	for key, rows := range groups {
		// groups keep the table order, so rows are sorted by date
		last := rows[len(rows)-1]
		trend := Trend{
			SeriesKey: key,
			Title:     last.Title,
			Artist:    last.Artist,
			FirstDate: rows[0].Date,
			LastDate:  last.Date,
			Rows:      len(rows),
		}

		streamed := 0
		for _, r := range rows {
			trend.NetChange += r.StreamDelta
			if r.Rank != nil {
				trend.Charted++
				if trend.BestRank == nil || *r.Rank < *trend.BestRank {
					trend.BestRank = lo.ToPtr(*r.Rank)
					trend.BestRankDate = r.Date
				}
			}
			if r.Streams != nil {
				streamed++
				trend.TotalStreams += *r.Streams
				if trend.PeakStreams == nil || *r.Streams > *trend.PeakStreams {
					trend.PeakStreams = lo.ToPtr(*r.Streams)
					trend.PeakStreamsDate = r.Date
				}
			}
		}
		if streamed > 0 {
			trend.AverageStreams = float64(trend.TotalStreams) / float64(streamed)
		}

		out = append(out, trend)
	}

	slices.SortFunc(out, func(a, b Trend) int {
		return cmp.Or(
			cmp.Compare(b.TotalStreams, a.TotalStreams),
			cmp.Compare(a.TrackID, b.TrackID),
			cmp.Compare(a.Region, b.Region),
			cmp.Compare(a.View, b.View),
		)
	})
	return out
}
