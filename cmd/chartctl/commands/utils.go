package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"spotify-charts/internal/aggregate"
	"spotify-charts/internal/chart"
	"spotify-charts/internal/store"
	"spotify-charts/internal/tabular"
	"spotify-charts/lib/textutil"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func NewTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func formatOptional[T int | int64](v *T) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(int64(*v), 10)
}

func formatDate(d chart.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.String()
}

// filterFlags are the filter options every command that outputs rows accepts.
type filterFlags struct {
	maxRank   int
	songs     []string
	artists   []string
	startDate string
	endDate   string
}

func addFilterFlags(cmd *cobra.Command) *filterFlags {
	f := &filterFlags{}
	cmd.Flags().IntVar(&f.maxRank, "max-rank", 0, "Only keep rows ranked at or above this position.")
	cmd.Flags().StringArrayVar(&f.songs, "songs", nil, "Title, track id or configured song group to keep, repeat the flag for more.")
	cmd.Flags().StringArrayVar(&f.artists, "artists", nil, "Artist to keep, repeat the flag for more.")
	cmd.Flags().StringVar(&f.startDate, "start-date", "", "First date to keep (YYYY-MM-DD), needs --end-date.")
	cmd.Flags().StringVar(&f.endDate, "end-date", "", "Last date to keep (YYYY-MM-DD), needs --start-date.")
	return f
}

func (f *filterFlags) build(cmd *cobra.Command) (aggregate.Filter, error) {
	override := FilterConfig{
		Songs:     textutil.CleanList(f.songs),
		Artists:   textutil.CleanList(f.artists),
		StartDate: f.startDate,
		EndDate:   f.endDate,
	}
	if cmd.Flags().Changed("max-rank") {
		override.MaxRank = &f.maxRank
	}
	return envOf(cmd).cfg.BuildFilter(override)
}

// applyFilter filters the table and warns about allow-list entries that match nothing.
func (e *env) applyFilter(table aggregate.Table, filter aggregate.Filter) aggregate.Table {
	for _, u := range filter.Unmatched(table) {
		if u.Nearest != "" {
			e.tel.ReportWarning("filter.unmatched", fmt.Errorf("%s entry '%s' matches nothing, did you mean '%s'?", u.Field, u.Entry, u.Nearest))
			continue
		}
		e.tel.ReportWarning("filter.unmatched", fmt.Errorf("%s entry '%s' matches nothing", u.Field, u.Entry))
	}
	return filter.Apply(table)
}

// inputFlags select where previously collected observations are read from.
type inputFlags struct {
	files  []string
	fromDb bool
}

func addInputFlags(cmd *cobra.Command) *inputFlags {
	f := &inputFlags{}
	cmd.Flags().StringSliceVar(&f.files, "in", nil, "CSV files (globs allowed) written by scrape, import or aggregate.")
	cmd.Flags().BoolVar(&f.fromDb, "from-db", false, "Read every observation stored in the configured database.")
	return f
}

func (f *inputFlags) load(cmd *cobra.Command) ([]chart.Observation, error) {
	if len(f.files) == 0 && !f.fromDb {
		return nil, fmt.Errorf("nothing to read, pass --in or --from-db")
	}

	var sets [][]chart.Observation
	for _, pattern := range f.files {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob '%s': %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("'%s' matches no file", pattern)
		}
		for _, path := range matches {
			obs, err := tabular.ReadFile(path)
			if err != nil {
				return nil, err
			}
			sets = append(sets, obs)
		}
	}

	if f.fromDb {
		s, err := envOf(cmd).openStore()
		if err != nil {
			return nil, err
		}
		defer s.Close()
		obs, err := s.Load(cmd.Context())
		if err != nil {
			return nil, fmt.Errorf("load stored observations: %w", err)
		}
		sets = append(sets, obs)
	}

	return aggregate.Merge(sets...), nil
}

func (e *env) openStore() (store.Store, error) {
	if !e.cfg.Database.Enabled() {
		return store.Store{}, fmt.Errorf("no database configured, set database.file or database.url in %s", defaultConfigName)
	}
	db, err := e.cfg.Database.OpenDB()
	if err != nil {
		return store.Store{}, fmt.Errorf("open database: %w", err)
	}
	return store.New(db, e.clock), nil
}

// outputName builds a file name like `kworb-daily-2025-09-01.csv` out of its parts.
func outputName(parts ...string) string {
	var slugs []string
	for _, p := range parts {
		if s := slug.Make(p); s != "" {
			slugs = append(slugs, s)
		}
	}
	return strings.Join(slugs, "-") + ".csv"
}

func writeOutput(path string, table aggregate.Table) error {
	if len(table) == 0 {
		fmt.Println("no data")
		return nil
	}
	if err := tabular.WriteFile(path, table); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("wrote %d rows to %s\n", len(table), path)
	return nil
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
