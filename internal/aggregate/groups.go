package aggregate

import (
	"slices"

	"github.com/samber/lo"
)

// SongGroups are named song allow-lists, e.g. every song of an album.
type SongGroups map[string][]string

// Expand replaces every entry that names a group with the songs of that group, other
// entries are kept as they are. Duplicates are dropped, the first occurrence wins.
func (g SongGroups) Expand(entries []string) []string {
	expanded := lo.FlatMap(entries, func(entry string, _ int) []string {
		if songs, ok := g[entry]; ok {
			return songs
		}
		return []string{entry}
	})
	return lo.Uniq(expanded)
}

// Names returns the group names in sorted order.
func (g SongGroups) Names() []string {
	names := lo.Keys(g)
	slices.Sort(names)
	return names
}
