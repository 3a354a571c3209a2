package commands

import (
	"os"
	"path/filepath"
	"spotify-charts/internal/chart"
	"spotify-charts/internal/scrapers/kworb"
	"spotify-charts/lib/configutil"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chartctl.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
		// scrape a bit slower than the default
		delay: "3s",
		workers: 2,
		database: { file: "charts.db" },
		song_groups: {
			twice_songs: ["TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)", "Strategy"],
		},
		filter: { max_rank: 50 },
	}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chartctl.local.json5"), []byte(`{
		workers: 4,
	}`), 0644))

	loaded, err := configutil.ReadConfig[Config](path)
	require.NoError(t, err)
	require.Equal(t, 4, loaded.Workers)
	require.Equal(t, "charts.db", loaded.Database.File)
	require.Equal(t, 50, *loaded.Filter.MaxRank)

	opts, err := loaded.ClientOptions()
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, opts.Delay)
	require.Equal(t, kworb.DefaultTimeout, opts.Timeout)
}

func TestClientOptionsInvalid(t *testing.T) {
	_, err := Config{Delay: "soon"}.ClientOptions()
	require.Error(t, err)
	_, err = Config{Timeout: "-1s"}.ClientOptions()
	require.Error(t, err)
}

func TestBuildFilter(t *testing.T) {
	config := Config{
		SongGroups: map[string][]string{
			"twice_songs": {"TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)", "Strategy"},
		},
		Filter: FilterConfig{
			MaxRank: chart.IntPtr(50),
			Artists: []string{"TWICE"},
		},
	}

	filter, err := config.BuildFilter(FilterConfig{
		MaxRank:   chart.IntPtr(10),
		Songs:     []string{"twice_songs", "Golden"},
		StartDate: "2025-08-01",
		EndDate:   "2025-08-31",
	})
	require.NoError(t, err)
	require.Equal(t, 10, *filter.MaxRank)
	require.Equal(t, []string{"TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)", "Strategy", "Golden"}, filter.Songs)
	require.Equal(t, []string{"TWICE"}, filter.Artists)
	require.Equal(t, chart.NewDate(2025, time.August, 1), *filter.StartDate)
	require.Equal(t, chart.NewDate(2025, time.August, 31), *filter.EndDate)

	onlyStart, err := config.BuildFilter(FilterConfig{StartDate: "2025-08-01"})
	require.NoError(t, err)
	require.NotNil(t, onlyStart.StartDate)
	require.Nil(t, onlyStart.EndDate)
	require.Equal(t, 50, *onlyStart.MaxRank)

	_, err = config.BuildFilter(FilterConfig{EndDate: "31/08/2025"})
	require.Error(t, err)
}

func TestOutputName(t *testing.T) {
	require.Equal(t, "kworb-both-2025-09-01.csv", outputName("kworb", "both", "2025-09-01"))
	require.Equal(t, "top-50-global-tracks.csv", outputName("Top 50 - Global", "tracks"))
	require.Equal(t, "tracks.csv", outputName("", "tracks"))
}
