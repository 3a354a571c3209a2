package tabular

import (
	"bytes"
	"os"
	"path/filepath"
	"spotify-charts/internal/aggregate"
	"spotify-charts/internal/chart"
	"spotify-charts/internal/components/telemetry"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func sampleObservations() []chart.Observation {
	start := chart.NewDate(2025, time.September, 5)
	return []chart.Observation{
		{
			Date:    start,
			TrackID: "19GxfaRs5KdurzPKLVX3Cq",
			Title:   "TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)",
			Artist:  "TWICE",
			Region:  chart.GlobalRegion,
			Rank:    chart.IntPtr(12),
			Streams: chart.Int64Ptr(2_500_000),
			View:    chart.VIEW_DAILY,
		},
		{
			Date:    start.AddDays(1),
			TrackID: "19GxfaRs5KdurzPKLVX3Cq",
			Title:   "TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)",
			Artist:  "TWICE",
			Region:  chart.GlobalRegion,
			Rank:    chart.IntPtr(10),
			Streams: chart.Int64Ptr(2_750_000),
			View:    chart.VIEW_DAILY,
		},
		{
			Date:    start,
			TrackID: "5sdQOyqq2IDhvmx2lHOpwd",
			Title:   "골든",
			Artist:  "HUNTR/X",
			Region:  "KR",
			View:    chart.VIEW_DAILY,
		},
	}
}

func TestWriteRead(t *testing.T) {
	table := aggregate.Aggregate(sampleObservations())

	buf := bytes.Buffer{}
	require.NoError(t, Write(&buf, table))

	contents := buf.String()
	require.True(t, strings.HasPrefix(contents, utf8BOM+strings.Join(Header, ",")+"\n"))
	require.Contains(t, contents, "2025-09-06,19GxfaRs5KdurzPKLVX3Cq,\"TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)\",TWICE,Global,daily,10,2750000,250000,10,Saturday,true\n")
	// absent values are empty cells, never zero
	require.Contains(t, contents, "2025-09-05,5sdQOyqq2IDhvmx2lHOpwd,골든,HUNTR/X,KR,daily,,,0,0,Friday,false\n")

	obs, err := Read(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(table.Observations(), obs); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts.csv")
	table := aggregate.Aggregate(sampleObservations())
	require.NoError(t, WriteFile(path, table))

	obs, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, obs, 3)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}

func TestReadErrors(t *testing.T) {
	obs, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, obs)

	_, err = Read(strings.NewReader("date,track_id\n2025-01-01,a\n"))
	require.ErrorContains(t, err, "missing column")

	header := strings.Join(Header, ",") + "\n"
	_, err = Read(strings.NewReader(header + "2025-13-01,a,t,ar,Global,daily,1,2,0,0,Monday,false\n"))
	require.ErrorContains(t, err, "line 2")

	_, err = Read(strings.NewReader(header + "2025-01-01,a,t,ar,Global,monthly,1,2,0,0,Monday,false\n"))
	require.Error(t, err)

	_, err = Read(strings.NewReader(header + "2025-01-01,a,t,ar,Global,daily,first,2,0,0,Monday,false\n"))
	require.ErrorContains(t, err, "parse rank")
}

func TestParseOfficialName(t *testing.T) {
	file, err := ParseOfficialName("downloads/regional-us-weekly-2025-08-28.csv")
	require.NoError(t, err)
	require.Equal(t, OfficialFile{
		Path:   "downloads/regional-us-weekly-2025-08-28.csv",
		Date:   chart.NewDate(2025, time.August, 28),
		Region: "US",
		View:   chart.VIEW_WEEKLY,
	}, file)

	file, err = ParseOfficialName("regional-global-daily-2025-09-01.csv")
	require.NoError(t, err)
	require.Equal(t, chart.GlobalRegion, file.Region)
	require.Equal(t, chart.VIEW_DAILY, file.View)

	file, err = ParseOfficialName("charts_2025-09-02.csv")
	require.NoError(t, err)
	require.Equal(t, chart.NewDate(2025, time.September, 2), file.Date)
	require.Equal(t, chart.GlobalRegion, file.Region)
	require.Equal(t, chart.VIEW_DAILY, file.View)

	_, err = ParseOfficialName("charts.csv")
	require.Error(t, err)
}

const officialHeader = "rank,uri,artist_names,track_name,source,peak_rank,previous_rank,days_on_chart,streams\n"

func TestReadOfficialFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, contents string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0644))
	}

	write("regional-global-daily-2025-09-01.csv", utf8BOM+officialHeader+
		"1,spotify:track:2plbrEY59IikOBgBGLjaoe,\"HUNTR/X, EJAE\",Golden,Republic,1,1,60,8123456\n"+
		"2,spotify:track:19GxfaRs5KdurzPKLVX3Cq,TWICE,\"TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)\",JYP,2,3,20,\"5,432,100\"\n"+
		"x,spotify:track:19GxfaRs5KdurzPKLVX3Cq,TWICE,broken,JYP,2,3,20,1\n"+
		"3,spotify:episode:19GxfaRs5KdurzPKLVX3Cq,Someone,podcast,src,3,3,1,100\n",
	)
	write("regional-global-daily-2025-09-02.csv", officialHeader+
		"1,spotify:track:2plbrEY59IikOBgBGLjaoe,\"HUNTR/X, EJAE\",Golden,Republic,1,1,61,8000000\n",
	)
	write("regional-kr-weekly-2025-08-28.csv", officialHeader+
		"4,spotify:track:19GxfaRs5KdurzPKLVX3Cq,TWICE,\"TAKEDOWN (JEONGYEON, JIHYO, CHAEYOUNG)\",JYP,2,3,20,700000\n",
	)
	write("regional-global-daily-2025-09-03.csv", "rank,track_name\n1,Golden\n")
	write("notes.csv", "nothing")

	rec := &telemetry.Recorder{}
	obs, err := ReadOfficialFiles(rec, filepath.Join(dir, "regional-*.csv"), filepath.Join(dir, "*.csv"))
	require.NoError(t, err)
	require.Len(t, obs, 4)

	table := aggregate.Aggregate(obs)
	golden := table.Series(aggregate.SeriesKey{TrackID: "2plbrEY59IikOBgBGLjaoe", Region: chart.GlobalRegion, View: chart.VIEW_DAILY})
	require.Len(t, golden, 2)
	require.Equal(t, "HUNTR/X, EJAE", golden[0].Artist)
	require.Equal(t, int64(-123456), golden[1].StreamDelta)

	twice := table.Series(aggregate.SeriesKey{TrackID: "19GxfaRs5KdurzPKLVX3Cq", Region: chart.GlobalRegion, View: chart.VIEW_DAILY})
	require.Len(t, twice, 1)
	require.Equal(t, int64(5_432_100), *twice[0].Streams)
	require.Equal(t, 2, *twice[0].Rank)

	weekly := table.Series(aggregate.SeriesKey{TrackID: "19GxfaRs5KdurzPKLVX3Cq", Region: "KR", View: chart.VIEW_WEEKLY})
	require.Len(t, weekly, 1)
	require.Equal(t, chart.NewDate(2025, time.August, 28), weekly[0].Date)

	require.Len(t, rec.Reports("warning"), 4)
	require.True(t, rec.Has("warning", report_official_row))
	require.True(t, rec.Has("warning", report_official_file))
}
