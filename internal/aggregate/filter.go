package aggregate

import (
	"slices"
	"sort"
	"spotify-charts/internal/chart"

	"github.com/antzucaro/matchr"
	"github.com/samber/lo"
)

// Predicate decides whether a row is kept.
type Predicate func(row Row) bool

// Filter narrows a table down, every field is optional and a zero field keeps everything.
type Filter struct {
	// MaxRank keeps rows ranked at or above this position, unranked rows are dropped.
	MaxRank *int
	// Songs keeps rows whose title or track id is in the list.
	Songs []string
	// Artists keeps rows whose artist string is in the list.
	Artists []string
	// StartDate and EndDate keep rows inside the inclusive range, the range only applies
	// when both ends are set.
	StartDate *chart.Date
	EndDate   *chart.Date
}

func (f Filter) IsZero() bool {
	return len(f.Steps()) == 0
}

// Steps returns the active predicates in the order they are applied: rank ceiling, songs,
// artists, date range.
func (f Filter) Steps() []Predicate {
	var steps []Predicate
	if f.MaxRank != nil {
		steps = append(steps, ByRank(*f.MaxRank))
	}
	if len(f.Songs) > 0 {
		steps = append(steps, BySongs(f.Songs))
	}
	if len(f.Artists) > 0 {
		steps = append(steps, ByArtists(f.Artists))
	}
	if f.StartDate != nil && f.EndDate != nil {
		steps = append(steps, ByDateRange(*f.StartDate, *f.EndDate))
	}
	return steps
}

// Apply returns a new table with the rows that pass every step, the input is left as is.
func (f Filter) Apply(table Table) Table {
	return ApplySteps(table, f.Steps()...)
}

// ApplySteps applies the predicates one after the other. Each predicate only looks at the
// row itself, so the order does not change the resulting rows.
func ApplySteps(table Table, steps ...Predicate) Table {
	out := slices.Clone(table)
	for _, step := range steps {
		out = lo.Filter(out, func(row Row, _ int) bool {
			return step(row)
		})
	}
	return out
}

func ByRank(maxRank int) Predicate {
	return func(row Row) bool {
		return row.Rank != nil && *row.Rank <= maxRank
	}
}

func BySongs(songs []string) Predicate {
	allowed := lo.SliceToMap(songs, func(s string) (string, struct{}) { return s, struct{}{} })
	return func(row Row) bool {
		_, title := allowed[row.Title]
		_, id := allowed[row.TrackID]
		return title || id
	}
}

func ByArtists(artists []string) Predicate {
	allowed := lo.SliceToMap(artists, func(s string) (string, struct{}) { return s, struct{}{} })
	return func(row Row) bool {
		_, ok := allowed[row.Artist]
		return ok
	}
}

func ByDateRange(start, end chart.Date) Predicate {
	return func(row Row) bool {
		return !row.Date.Before(start) && !row.Date.After(end)
	}
}

// Unmatched is an allow-list entry that matches no row of the table.
type Unmatched struct {
	// Field is either "songs" or "artists".
	Field string
	Entry string
	// Nearest is the closest existing value, empty when the table has none.
	Nearest string
	Score   float64
}

// Unmatched lists the song and artist entries that match nothing in the table along with
// the closest existing title or artist, allow-lists need exact matches so a typo silently
// empties the result otherwise.
func (f Filter) Unmatched(table Table) []Unmatched {
	titles := lo.Uniq(lo.Map(table, func(r Row, _ int) string { return r.Title }))
	ids := lo.Uniq(lo.Map(table, func(r Row, _ int) string { return r.TrackID }))
	artists := lo.Uniq(lo.Map(table, func(r Row, _ int) string { return r.Artist }))
	sort.Strings(titles)
	sort.Strings(artists)

	var out []Unmatched
	for _, song := range f.Songs {
		if lo.Contains(titles, song) || lo.Contains(ids, song) {
			continue
		}
		nearest, score := nearestOf(song, titles)
		out = append(out, Unmatched{Field: "songs", Entry: song, Nearest: nearest, Score: score})
	}
	for _, artist := range f.Artists {
		if lo.Contains(artists, artist) {
			continue
		}
		nearest, score := nearestOf(artist, artists)
		out = append(out, Unmatched{Field: "artists", Entry: artist, Nearest: nearest, Score: score})
	}
	return out
}

func nearestOf(entry string, candidates []string) (string, float64) {
	best := ""
	bestScore := 0.0
	for _, c := range candidates {
		score := matchr.JaroWinkler(entry, c, false)
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best, bestScore
}
