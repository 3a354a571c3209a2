package kworb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"spotify-charts/internal/chart"
	"spotify-charts/internal/components/telemetry"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mutex sync.Mutex
	calls []string
	pages map[string][]byte
	// cancel is called right after the n-th fetch when set
	cancel  context.CancelFunc
	cancelN int
	// block makes the n-th fetch wait for the context to end
	block bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, trackID string, view chart.View) FetchResult {
	f.mutex.Lock()
	f.calls = append(f.calls, fmt.Sprintf("%s/%s", trackID, view))
	calls := len(f.calls)
	f.mutex.Unlock()

	result := FetchResult{TrackID: trackID, View: view}
	if f.cancel != nil && calls == f.cancelN {
		if f.block {
			f.cancel()
			<-ctx.Done()
			result.Err = fmt.Errorf("get %s: %w", trackID, ctx.Err())
			return result
		}
		defer f.cancel()
	}

	body, ok := f.pages[trackID]
	if !ok {
		result.Status = 404
		result.Err = errors.New("not found")
		return result
	}
	result.Status = 200
	result.Body = body
	return result
}

func (f *fakeFetcher) Calls() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	out := append([]string(nil), f.calls...)
	sort.Strings(out)
	return out
}

func TestBatchRun(t *testing.T) {
	fixture := readFixture(t, "track.html")
	fetcher := &fakeFetcher{
		pages: map[string][]byte{
			"a":     fixture,
			"b":     fixture,
			"empty": []byte("<html><body>Title: Nothing</body></html>"),
		},
	}

	rec := &telemetry.Recorder{}
	batch := NewBatch(fetcher, NewParser(ParseOptions{}, rec), 3, rec)

	checkpointed := map[string]int{}
	batch.OnTrack = func(_ context.Context, trackID string, obs []chart.Observation) error {
		checkpointed[trackID] = len(obs)
		return nil
	}
	var items []ItemResult
	batch.OnItem = func(item ItemResult) {
		items = append(items, item)
	}

	result := batch.Run(
		context.Background(),
		[]string{"a", "b", "missing", "empty", "a", ""},
		[]chart.View{chart.VIEW_WEEKLY, chart.VIEW_DAILY},
	)

	require.False(t, result.Canceled)
	require.Len(t, result.Items, 8)
	require.Len(t, items, 8)
	require.Equal(t, 4, result.Succeeded())
	require.Equal(t, 4, result.Failed())
	require.Len(t, result.Observations, 12)
	require.Equal(t, map[string]int{"a": 6, "b": 6}, checkpointed)

	err := result.Err()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrNoData)

	// every pair is requested exactly once
	require.Equal(t, []string{
		"a/daily", "a/weekly",
		"b/daily", "b/weekly",
		"empty/daily", "empty/weekly",
		"missing/daily", "missing/weekly",
	}, fetcher.Calls())

	counts := map[string]int64{}
	for _, r := range rec.Reports("count") {
		counts[r.ID] = r.Count
	}
	require.Equal(t, int64(4), counts["kworb: batch.succeeded"])
	require.Equal(t, int64(4), counts["kworb: batch.failed"])
}

func TestBatchCheckpointFailureContinues(t *testing.T) {
	fixture := readFixture(t, "track.html")
	fetcher := &fakeFetcher{pages: map[string][]byte{"a": fixture, "b": fixture}}

	rec := &telemetry.Recorder{}
	batch := NewBatch(fetcher, NewParser(ParseOptions{}, rec), 1, rec)
	batch.OnTrack = func(context.Context, string, []chart.Observation) error {
		return errors.New("disk full")
	}

	result := batch.Run(context.Background(), []string{"a", "b"}, []chart.View{chart.VIEW_DAILY})
	require.Equal(t, 2, result.Succeeded())
	require.Len(t, rec.Reports("broken"), 2)
}

func TestBatchCancel(t *testing.T) {
	fixture := readFixture(t, "track.html")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &fakeFetcher{
		pages:   map[string][]byte{"a": fixture, "b": fixture, "c": fixture},
		cancel:  cancel,
		cancelN: 1,
	}

	rec := &telemetry.Recorder{}
	batch := NewBatch(fetcher, NewParser(ParseOptions{}, rec), 1, rec)

	checkpointed := 0
	var checkpointErr error
	batch.OnTrack = func(ctx context.Context, _ string, _ []chart.Observation) error {
		checkpointErr = ctx.Err()
		checkpointed++
		return nil
	}

	result := batch.Run(ctx, []string{"a", "b", "c"}, []chart.View{chart.VIEW_WEEKLY, chart.VIEW_DAILY})
	require.True(t, result.Canceled)
	require.Len(t, result.Items, 1)
	require.Len(t, result.Observations, 3)
	require.Equal(t, 1, checkpointed)
	require.NoError(t, checkpointErr)
	require.True(t, rec.Has("warning", report_batch_run))
}

func TestBatchCancelInFlight(t *testing.T) {
	fixture := readFixture(t, "track.html")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &fakeFetcher{
		pages:   map[string][]byte{"a": fixture},
		cancel:  cancel,
		cancelN: 1,
		block:   true,
	}

	rec := &telemetry.Recorder{}
	batch := NewBatch(fetcher, NewParser(ParseOptions{}, rec), 1, rec)
	seen := 0
	batch.OnItem = func(ItemResult) { seen++ }

	result := batch.Run(ctx, []string{"a"}, []chart.View{chart.VIEW_DAILY})
	require.True(t, result.Canceled)
	require.Empty(t, result.Items)
	require.Equal(t, 0, result.Failed())
	require.NoError(t, result.Err())
	require.Equal(t, 0, seen)
	require.True(t, rec.Has("warning", report_batch_run))
}

func TestBatchCanceledAfterLastItem(t *testing.T) {
	fixture := readFixture(t, "track.html")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the only fetch succeeds and cancels on its way out
	fetcher := &fakeFetcher{
		pages:   map[string][]byte{"a": fixture},
		cancel:  cancel,
		cancelN: 1,
	}

	rec := &telemetry.Recorder{}
	result := NewBatch(fetcher, NewParser(ParseOptions{}, rec), 1, rec).
		Run(ctx, []string{"a"}, []chart.View{chart.VIEW_DAILY})

	require.True(t, result.Canceled)
	require.Len(t, result.Items, 1)
	require.Equal(t, 1, result.Succeeded())
}

func TestBatchPreCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &fakeFetcher{pages: map[string][]byte{}}
	rec := &telemetry.Recorder{}
	result := NewBatch(fetcher, NewParser(ParseOptions{}, rec), 2, rec).
		Run(ctx, []string{"a", "b"}, []chart.View{chart.VIEW_WEEKLY})

	require.True(t, result.Canceled)
	require.Empty(t, result.Items)
	require.Empty(t, fetcher.Calls())
}
