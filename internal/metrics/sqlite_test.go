package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndSummarize(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	attempts := []Attempt{
		{Timestamp: now, RunID: "run-1", SourceUser: "techguru", SourceID: "ABC123", TargetPlatform: "twitter", Success: true, TextLength: 140, Elapsed: 800 * time.Millisecond},
		{Timestamp: now, RunID: "run-1", SourceUser: "techguru", SourceID: "DEF456", TargetPlatform: "twitter", Success: false, ErrorKind: "PublishRejected", Elapsed: 200 * time.Millisecond},
		{Timestamp: now, RunID: "run-1", SourceUser: "techguru", SourceID: "ABC123", TargetPlatform: "mastodon", Success: true, TextLength: 300, Elapsed: 400 * time.Millisecond},
	}
	for _, a := range attempts {
		require.NoError(t, store.Record(ctx, a))
	}

	summary, err := store.Summary(ctx, now.Add(-time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.InDelta(t, 2.0/3.0, summary.SuccessRate, 0.001)
	assert.InDelta(t, (800+200+400)/3.0, summary.AvgElapsedMS, 0.001)

	require.Len(t, summary.Platforms, 2)
	byName := map[string]PlatformSummary{}
	for _, p := range summary.Platforms {
		byName[p.Platform] = p
	}
	assert.Equal(t, PlatformSummary{Platform: "twitter", Total: 2, Succeeded: 1, Failed: 1}, byName["twitter"])
	assert.Equal(t, PlatformSummary{Platform: "mastodon", Total: 1, Succeeded: 1, Failed: 0}, byName["mastodon"])
}

func TestSummaryWindowExcludesOldRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := Attempt{Timestamp: time.Now().Add(-48 * time.Hour), RunID: "run-0", SourceID: "OLD1", TargetPlatform: "twitter", Success: true}
	recent := Attempt{Timestamp: time.Now(), RunID: "run-1", SourceID: "NEW1", TargetPlatform: "twitter", Success: true}
	require.NoError(t, store.Record(ctx, old))
	require.NoError(t, store.Record(ctx, recent))

	summary, err := store.Summary(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
}

func TestSummaryEmptyStore(t *testing.T) {
	store := newTestStore(t)

	summary, err := store.Summary(context.Background(), time.Unix(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total)
	assert.Empty(t, summary.Platforms)
}

func TestReopenExistingStore(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Record(context.Background(), Attempt{Timestamp: time.Now(), RunID: "run-1", SourceID: "X", TargetPlatform: "twitter", Success: true}))
	require.NoError(t, store.Close())

	// Reopening must tolerate already-applied migrations and keep the rows.
	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	summary, err := reopened.Summary(context.Background(), time.Unix(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
}
