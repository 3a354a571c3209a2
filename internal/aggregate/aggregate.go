// Package aggregate merges observations from any number of pages or imports into one
// table, derives day-over-day metrics and filters the result.
package aggregate

import (
	"cmp"
	"slices"
	"spotify-charts/internal/chart"
	"strings"
	"time"
)

// Metrics are derived from the ordered series an observation belongs to, they are never
// scraped.
type Metrics struct {
	// StreamDelta is the difference to the previous observation of the series, it is 0
	// for the first observation and whenever either stream count is absent.
	StreamDelta int64
	// StreamPercentChange is StreamDelta relative to the previous stream count, it is 0
	// when that count is absent or zero.
	StreamPercentChange float64
	DayOfWeek           string
	IsWeekend           bool
}

type Row struct {
	chart.Observation
	Metrics
}

// Table is sorted by (track, region, view, date) and holds one row per observation key.
type Table []Row

// SeriesKey identifies the series deltas are computed over, daily and weekly observations
// of the same track and region are separate series.
type SeriesKey struct {
	TrackID string
	Region  string
	View    chart.View
}

func seriesOf(o chart.Observation) SeriesKey {
	return SeriesKey{TrackID: o.TrackID, Region: o.Region, View: o.View}
}

func compareObservations(a, b chart.Observation) int {
	return cmp.Or(
		strings.Compare(a.TrackID, b.TrackID),
		strings.Compare(a.Region, b.Region),
		cmp.Compare(a.View, b.View),
		a.Date.Compare(b.Date),
	)
}

// Merge concatenates every set into a new slice with one observation per key, a later
// observation replaces an earlier one with the same key. The result is sorted by
// (track, region, view, date) whatever the input order. The inputs are not modified.
func Merge(sets ...[]chart.Observation) []chart.Observation {
	index := map[chart.Key]int{}
	var out []chart.Observation
	for _, set := range sets {
		for _, o := range set {
			key := o.Key()
			if i, exists := index[key]; exists {
				out[i] = o
				continue
			}
			index[key] = len(out)
			out = append(out, o)
		}
	}
	slices.SortStableFunc(out, compareObservations)
	return out
}

// Derive computes the metrics of every observation. The input is merged first so the
// metrics only ever depend on the full ordered series, never on the input order.
func Derive(obs []chart.Observation) Table {
	merged := Merge(obs)
	table := make(Table, len(merged))

	var prev *chart.Observation
	for i := range merged {
		cur := merged[i]
		row := Row{
			Observation: cur,
			Metrics: Metrics{
				DayOfWeek: cur.Date.Weekday().String(),
				IsWeekend: isWeekend(cur.Date.Weekday()),
			},
		}
		if prev != nil && seriesOf(*prev) == seriesOf(cur) {
			row.StreamDelta, row.StreamPercentChange = delta(prev.Streams, cur.Streams)
		}
		table[i] = row
		prev = &merged[i]
	}

	return table
}

// Aggregate merges every set and derives the metrics of the result.
func Aggregate(sets ...[]chart.Observation) Table {
	return Derive(Merge(sets...))
}

func delta(prev, cur *int64) (int64, float64) {
	if prev == nil || cur == nil {
		return 0, 0
	}
	d := *cur - *prev
	if *prev == 0 {
		return d, 0
	}
	return d, float64(d) / float64(*prev) * 100
}

func isWeekend(day time.Weekday) bool {
	return day == time.Saturday || day == time.Sunday
}

// Observations strips the metrics off the table.
func (t Table) Observations() []chart.Observation {
	out := make([]chart.Observation, len(t))
	for i, row := range t {
		out[i] = row.Observation
	}
	return out
}

// Series returns the rows of a single series in date order.
func (t Table) Series(key SeriesKey) Table {
	var out Table
	for _, row := range t {
		if seriesOf(row.Observation) == key {
			out = append(out, row)
		}
	}
	return out
}
