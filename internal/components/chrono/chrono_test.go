package chrono

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStandardSleepCancel(t *testing.T) {
	impl, err := NewStandardImpl("")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err = impl.Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Second)
}

func TestFakeSleep(t *testing.T) {
	start := time.Date(2025, 8, 23, 0, 0, 0, 0, time.UTC)
	fake := NewFakeImpl(start)

	require.NoError(t, fake.Sleep(context.Background(), 2*time.Second))
	require.NoError(t, fake.Sleep(context.Background(), 3*time.Second))

	require.Equal(t, start.Add(5*time.Second), fake.Now())
	require.Equal(t, []time.Duration{2 * time.Second, 3 * time.Second}, fake.Slept())
}
