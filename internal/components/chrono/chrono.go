package chrono

import (
	"context"
	"sync"
	"time"
)

// API is the source of time for anything that waits or stamps dates.
type API interface {
	Now() time.Time
	Location() *time.Location
	// Sleep blocks for `d` or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

type StandardImpl struct {
	location *time.Location
}

// NewStandardImpl creates a StandardImpl in the given IANA zone, an empty name means UTC.
func NewStandardImpl(zone string) (StandardImpl, error) {
	if zone == "" {
		return StandardImpl{location: time.UTC}, nil
	}
	location, err := time.LoadLocation(zone)
	if err != nil {
		return StandardImpl{}, err
	}
	return StandardImpl{location: location}, nil
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardImpl) Location() *time.Location {
	return s.location
}

func (s StandardImpl) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FakeImpl never blocks, Sleep advances its clock and records the requested durations.
type FakeImpl struct {
	mutex sync.Mutex
	now   time.Time
	slept []time.Duration
}

func NewFakeImpl(now time.Time) *FakeImpl {
	return &FakeImpl{now: now}
}

func (f *FakeImpl) Now() time.Time {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.now
}

func (f *FakeImpl) Location() *time.Location {
	return f.Now().Location()
}

func (f *FakeImpl) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.now = f.now.Add(d)
	f.slept = append(f.slept, d)
	return nil
}

// Slept returns every duration passed to Sleep so far.
func (f *FakeImpl) Slept() []time.Duration {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	out := make([]time.Duration, len(f.slept))
	copy(out, f.slept)
	return out
}
