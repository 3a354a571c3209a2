// batch.go drives the fetcher and the parser over many tracks.

package kworb

import (
	"context"
	"errors"
	"fmt"
	"spotify-charts/internal/chart"
	"spotify-charts/internal/components/assert"
	"spotify-charts/internal/components/telemetry"
	"sync"

	"github.com/samber/lo"
)

const (
	report_batch_run        = "batch.run"
	report_batch_checkpoint = "batch.checkpoint"
)

// ErrNoData is the error of an item whose page was fetched but yielded no observations.
var ErrNoData = errors.New("no observations on page")

// ItemResult is the outcome of one (track, view) pair.
type ItemResult struct {
	TrackID      string
	View         chart.View
	Status       int
	Title        string
	Artist       string
	Observations int
	Diagnostics  []Diagnostic
	UsedFallback bool
	Err          error
}

func (r ItemResult) OK() bool {
	return r.Err == nil
}

type BatchResult struct {
	Observations []chart.Observation
	Items        []ItemResult
	// Canceled is set when the context ended before every item was attempted.
	Canceled bool
}

func (r BatchResult) Succeeded() int {
	return lo.CountBy(r.Items, ItemResult.OK)
}

func (r BatchResult) Failed() int {
	return len(r.Items) - r.Succeeded()
}

// Err joins the errors of every failed item, it is nil when everything succeeded.
func (r BatchResult) Err() error {
	var errs []error
	for _, item := range r.Items {
		if item.Err != nil {
			errs = append(errs, fmt.Errorf("%s (%s): %w", item.TrackID, item.View, item.Err))
		}
	}
	return errors.Join(errs...)
}

// Batch fetches and parses every (track, view) pair. Tracks are spread across a bounded
// number of workers, the views of a single track are always handled by the same worker
// one after the other.
type Batch struct {
	fetcher Fetcher
	parser  Parser
	workers int
	tel     telemetry.API

	// OnTrack is called once per track after all of its views have been attempted, with
	// the observations of that track. Calls never overlap. A returned error is reported
	// and does not stop the batch.
	OnTrack func(ctx context.Context, trackID string, obs []chart.Observation) error
	// OnItem is called after every (track, view) pair. Calls never overlap.
	OnItem func(item ItemResult)
}

func NewBatch(fetcher Fetcher, parser Parser, workers int, tel telemetry.API) *Batch {
	assert.NotNil(fetcher)
	assert.NotNil(tel)
	if workers < 1 {
		workers = 1
	}
	return &Batch{
		fetcher: fetcher,
		parser:  parser,
		workers: workers,
		tel:     telemetry.NewScopedAPI("kworb", tel),
	}
}

type trackResult struct {
	attempted    bool
	items        []ItemResult
	observations []chart.Observation
}

// Run never aborts on a failing item. Once ctx is done no new request is started, the
// items that were not attempted or were cut off by the cancellation are left out of the
// result and Canceled is set.
func (b *Batch) Run(ctx context.Context, trackIDs []string, views []chart.View) BatchResult {
	trackIDs = lo.Uniq(lo.Filter(trackIDs, func(id string, _ int) bool { return id != "" }))
	views = lo.Uniq(views)

	results := make([]trackResult, len(trackIDs))
	jobs := make(chan int)
	hookLock := sync.Mutex{}
	wg := sync.WaitGroup{}

	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = b.runTrack(ctx, trackIDs[idx], views, &hookLock)
			}
		}()
	}

dispatch:
	for idx := range trackIDs {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- idx:
		}
	}
	close(jobs)
	wg.Wait()

	out := BatchResult{Canceled: ctx.Err() != nil}
	for _, r := range results {
		if !r.attempted || len(r.items) < len(views) {
			out.Canceled = true
		}
		out.Items = append(out.Items, r.items...)
		out.Observations = append(out.Observations, r.observations...)
	}

	b.tel.ReportCount("batch.succeeded", int64(out.Succeeded()))
	b.tel.ReportCount("batch.failed", int64(out.Failed()))
	if out.Canceled {
		b.tel.ReportWarning(report_batch_run, fmt.Errorf("batch interrupted"), len(out.Items))
	}

	return out
}

func (b *Batch) runTrack(ctx context.Context, trackID string, views []chart.View, hookLock *sync.Mutex) trackResult {
	result := trackResult{attempted: true}

	for _, view := range views {
		if ctx.Err() != nil {
			break
		}
		item, obs := b.runItem(ctx, trackID, view)
		if interrupted(ctx, item) {
			break
		}
		result.items = append(result.items, item)
		result.observations = append(result.observations, obs...)

		if b.OnItem != nil {
			hookLock.Lock()
			b.OnItem(item)
			hookLock.Unlock()
		}
	}

	if b.OnTrack != nil && len(result.observations) > 0 {
		hookLock.Lock()
		// the checkpoint must land even if the batch was just interrupted
		err := b.OnTrack(context.WithoutCancel(ctx), trackID, result.observations)
		hookLock.Unlock()
		if err != nil {
			b.tel.ReportBroken(report_batch_checkpoint, err, trackID)
		}
	}

	return result
}

// interrupted reports whether item failed because ctx ended while it was in flight.
func interrupted(ctx context.Context, item ItemResult) bool {
	return item.Err != nil && ctx.Err() != nil && errors.Is(item.Err, ctx.Err())
}

func (b *Batch) runItem(ctx context.Context, trackID string, view chart.View) (ItemResult, []chart.Observation) {
	item := ItemResult{TrackID: trackID, View: view}

	fetched := b.fetcher.Fetch(ctx, trackID, view)
	item.Status = fetched.Status
	if !fetched.OK() {
		item.Err = fetched.Err
		return item, nil
	}

	page := b.parser.Parse(trackID, fetched.Body, view)
	item.Title = page.Title
	item.Artist = page.Artist
	item.Diagnostics = page.Diagnostics
	item.UsedFallback = page.UsedFallback
	item.Observations = len(page.Observations)
	if len(page.Observations) == 0 {
		item.Err = ErrNoData
		return item, nil
	}

	return item, page.Observations
}
