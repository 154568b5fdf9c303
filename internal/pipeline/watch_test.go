package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchRejectsBadCronExpression(t *testing.T) {
	err := Watch(context.Background(), "not a cron line", func(context.Context) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse cron expression")
}

func TestWatchRunsJobAndStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, "@every 1s", func(context.Context) {
			runs.Add(1)
		})
	}()

	// Let at least one tick fire, then stop.
	time.Sleep(1500 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
	assert.GreaterOrEqual(t, runs.Load(), int32(1))
}
