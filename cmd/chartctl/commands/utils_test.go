package commands

import (
	"context"
	"spotify-charts/internal/aggregate"
	"spotify-charts/internal/chart"
	"spotify-charts/internal/components/telemetry"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func newFilterCmd(t *testing.T, e *env, args ...string) (*cobra.Command, *filterFlags) {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	flags := addFilterFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	if e != nil {
		withEnv(cmd, e)
	}
	return cmd, flags
}

func TestFilterFlagsKeepCommas(t *testing.T) {
	cmd, flags := newFilterCmd(t, newEnv(Config{}),
		"--songs", "TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)",
		"--songs", " Golden ",
		"--artists", "Tyler, The Creator",
		"--max-rank", "10",
	)

	filter, err := flags.build(cmd)
	require.NoError(t, err)
	require.Equal(t, []string{"TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)", "Golden"}, filter.Songs)
	require.Equal(t, []string{"Tyler, The Creator"}, filter.Artists)
	require.Equal(t, 10, *filter.MaxRank)
}

func TestFilterFlagsSelectCommaTitle(t *testing.T) {
	rec := &telemetry.Recorder{}
	e := newEnv(Config{})
	e.tel = rec
	cmd, flags := newFilterCmd(t, e, "--songs", "TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)")

	filter, err := flags.build(cmd)
	require.NoError(t, err)

	date := chart.NewDate(2025, 9, 1)
	table := aggregate.Aggregate([]chart.Observation{
		{TrackID: "19GxfaRs5KdurzPKLVX3Cq", Title: "TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)", Artist: "TWICE", Region: "Global", View: chart.VIEW_DAILY, Date: date},
		{TrackID: "5sdQOyqq2IDhvmx2lHOpwd", Title: "Golden", Artist: "HUNTR/X", Region: "Global", View: chart.VIEW_DAILY, Date: date},
	})

	rows := envOf(cmd).applyFilter(table, filter)
	require.Len(t, rows, 1)
	require.Equal(t, "19GxfaRs5KdurzPKLVX3Cq", rows[0].TrackID)
	require.Empty(t, rec.Reports("warning"))
}

func TestFilterFlagsUseConfig(t *testing.T) {
	e := newEnv(Config{
		SongGroups: map[string][]string{"twice_songs": {"Strategy", "TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)"}},
		Filter:     FilterConfig{MaxRank: chart.IntPtr(50)},
	})
	cmd, flags := newFilterCmd(t, e, "--songs", "twice_songs")

	filter, err := flags.build(cmd)
	require.NoError(t, err)
	require.Equal(t, []string{"Strategy", "TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)"}, filter.Songs)
	require.Equal(t, 50, *filter.MaxRank)
}

func TestEnvOf(t *testing.T) {
	bare := &cobra.Command{Use: "bare"}
	fallback := envOf(bare)
	require.NotNil(t, fallback.clock)
	require.Equal(t, Config{}, fallback.cfg)

	cmd := &cobra.Command{Use: "test"}
	cmd.SetContext(context.Background())
	e := newEnv(Config{Workers: 3})
	withEnv(cmd, e)
	require.Same(t, e, envOf(cmd))
	require.Equal(t, 3, envOf(cmd).cfg.Workers)
}
