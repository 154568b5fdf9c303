package repost

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePublisher fails on the post indexes listed in failOn.
type fakePublisher struct {
	mu     sync.Mutex
	calls  int
	failOn map[int]error
}

func (f *fakePublisher) Name() string { return "fake" }

func (f *fakePublisher) Publish(ctx context.Context, post AdaptedPost) (PublishResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	f.calls++
	if err, ok := f.failOn[idx]; ok {
		return PublishResult{}, err
	}
	return PublishResult{Success: true, RemoteID: fmt.Sprintf("remote-%d", idx)}, nil
}

func batchOf(n int) []AdaptedPost {
	posts := make([]AdaptedPost, n)
	for i := range posts {
		posts[i] = AdaptedPost{Text: fmt.Sprintf("post %d", i), SourceID: fmt.Sprintf("src-%d", i), TextLimit: 280}
	}
	return posts
}

func TestPublishBatchContinuesAfterFailure(t *testing.T) {
	pub := &fakePublisher{failOn: map[int]error{
		1: RejectedError{Provider: "fake", Err: errors.New("quota exceeded")},
	}}
	orch := NewOrchestrator(pub, 0, DefaultBackoff())

	summary := orch.PublishBatch(context.Background(), batchOf(3))

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 3, pub.calls, "third post must be processed despite the second failing")
	assert.Equal(t, 1, summary.Failures[KindPublishRejected])

	require.Len(t, summary.Results, 3)
	assert.True(t, summary.Results[0].Success)
	assert.False(t, summary.Results[1].Success)
	assert.Equal(t, KindPublishRejected, summary.Results[1].Kind)
	assert.True(t, summary.Results[2].Success)
}

func TestPublishBatchClassifiesUnknownErrors(t *testing.T) {
	pub := &fakePublisher{failOn: map[int]error{0: errors.New("boom")}}
	orch := NewOrchestrator(pub, 0, DefaultBackoff())

	summary := orch.PublishBatch(context.Background(), batchOf(1))

	assert.Equal(t, 1, summary.Failures[KindUnknown])
}

func TestPublishBatchCancellationAbandonsRemainder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pub := &fakePublisher{}
	orch := NewOrchestrator(pub, 0, DefaultBackoff())

	summary := orch.PublishBatch(ctx, batchOf(3))

	assert.Equal(t, 0, pub.calls)
	assert.Equal(t, 3, summary.Skipped)
	assert.Equal(t, 0, summary.Succeeded)
}

func TestPublishBatchDelayRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	pub := &fakePublisher{}
	orch := NewOrchestrator(pub, time.Hour, DefaultBackoff())

	done := make(chan BatchSummary, 1)
	go func() {
		done <- orch.PublishBatch(ctx, batchOf(2))
	}()

	// Give the first publish a moment, then cancel during the delay.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case summary := <-done:
		assert.Equal(t, 1, summary.Succeeded)
		assert.Equal(t, 1, summary.Skipped)
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not return after cancellation")
	}
}

func TestPublishRetriesUpToConfiguredAttempts(t *testing.T) {
	pub := &fakePublisher{failOn: map[int]error{
		0: errors.New("transient"),
		1: errors.New("transient"),
	}}
	backoff := Backoff{Initial: time.Millisecond, Multiplier: 2, Max: time.Millisecond, Attempts: 3}
	orch := NewOrchestrator(pub, 0, backoff)

	summary := orch.PublishBatch(context.Background(), batchOf(1))

	assert.Equal(t, 3, pub.calls)
	assert.Equal(t, 1, summary.Succeeded)
}

func TestScheduleImmediatePublish(t *testing.T) {
	pub := &fakePublisher{}
	orch := NewOrchestrator(pub, 0, DefaultBackoff())

	result, err := orch.Schedule(context.Background(), batchOf(1)[0], time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestScheduleHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pub := &fakePublisher{}
	orch := NewOrchestrator(pub, 0, DefaultBackoff())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := orch.Schedule(ctx, batchOf(1)[0], time.Now().Add(time.Hour))
	require.Error(t, err)
	assert.Equal(t, 0, pub.calls)
}

func TestBackoffWaitGrowsAndCaps(t *testing.T) {
	backoff := Backoff{Initial: time.Second, Multiplier: 2, Max: 3 * time.Second, Attempts: 5}

	assert.Equal(t, time.Second, backoff.wait(1))
	assert.Equal(t, 2*time.Second, backoff.wait(2))
	assert.Equal(t, 3*time.Second, backoff.wait(3))
	assert.Equal(t, 3*time.Second, backoff.wait(4))
}
