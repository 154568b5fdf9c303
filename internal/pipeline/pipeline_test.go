package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repost-sh/repost/internal/config"
	"github.com/repost-sh/repost/internal/metrics"
	"github.com/repost-sh/repost/internal/repost"
)

type fakeFetcher struct {
	posts []repost.SourcePost
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, username string, limit int) ([]repost.SourcePost, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.posts, nil
}

type fakeGenerator struct {
	text string
	err  error
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string, maxLength int) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.text, nil
}

type memSink struct {
	mu       sync.Mutex
	attempts []metrics.Attempt
}

func (s *memSink) Record(ctx context.Context, attempt metrics.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	return nil
}

func (s *memSink) recorded() []metrics.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]metrics.Attempt(nil), s.attempts...)
}

type capturePublisher struct {
	name string
	mu   sync.Mutex
	got  []repost.AdaptedPost
	err  error
}

func (p *capturePublisher) Name() string { return p.name }

func (p *capturePublisher) Publish(ctx context.Context, post repost.AdaptedPost) (repost.PublishResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, post)
	if p.err != nil {
		return repost.PublishResult{}, p.err
	}
	return repost.PublishResult{Success: true, RemoteID: "id-" + post.SourceID}, nil
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Platforms = []config.PlatformConfig{
		{Name: "twitter", MaxTextLength: 280, MaxHashtags: 10, VideoMaxDurationSeconds: 140, VideoMaxSizeBytes: 512 << 20},
		{Name: "mastodon", MaxTextLength: 500, MaxHashtags: 10, VideoMaxDurationSeconds: 300, VideoMaxSizeBytes: 200 << 20},
	}
	return cfg
}

func sourcePosts() []repost.SourcePost {
	return []repost.SourcePost{
		{ID: "ABC123", Username: "techguru", Caption: "Machine learning demo. More soon.", Hashtags: []string{"AI"}, Engage: repost.Engagement{Likes: 2847}},
		{ID: "DEF456", Username: "techguru", Caption: "Quick tip about Go testing."},
	}
}

func TestRunPublishesGeneratedText(t *testing.T) {
	sink := &memSink{}
	pub := &capturePublisher{name: "twitter"}
	p := New(testConfig(), &fakeFetcher{posts: sourcePosts()}, &fakeGenerator{text: "generated copy"}, sink)

	report, err := p.Run(context.Background(), []string{"techguru"}, map[string]repost.Publisher{"twitter": pub})
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.Fetched)
	assert.Equal(t, 0, report.Rejected)
	assert.Equal(t, 2, report.Succeeded())
	assert.Equal(t, 0, report.Failed())

	require.Len(t, pub.got, 2)
	assert.Equal(t, "generated copy", pub.got[0].Text)
	assert.Equal(t, "twitter", pub.got[0].Platform)

	attempts := sink.recorded()
	require.Len(t, attempts, 2)
	assert.True(t, attempts[0].Success)
	assert.Equal(t, report.RunID, attempts[0].RunID)
	assert.Equal(t, "techguru", attempts[0].SourceUser)
}

func TestRunFallsBackWhenGeneratorFails(t *testing.T) {
	pub := &capturePublisher{name: "twitter"}
	gen := &fakeGenerator{err: repost.ProviderError{Err: errors.New("offline")}}
	p := New(testConfig(), &fakeFetcher{posts: sourcePosts()}, gen, &memSink{})

	report, err := p.Run(context.Background(), nil, map[string]repost.Publisher{"twitter": pub})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded())

	require.Len(t, pub.got, 2)
	// Deterministic transform: first sentence of the caption survives.
	assert.Contains(t, pub.got[0].Text, "Machine learning demo")
	assert.NotContains(t, pub.got[0].Text, "More soon")
}

func TestRunWithoutGeneratorUsesFallback(t *testing.T) {
	pub := &capturePublisher{name: "twitter"}
	p := New(testConfig(), &fakeFetcher{posts: sourcePosts()}, nil, &memSink{})

	report, err := p.Run(context.Background(), nil, map[string]repost.Publisher{"twitter": pub})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded())
}

func TestRunRecordsValidationRejection(t *testing.T) {
	sink := &memSink{}
	pub := &capturePublisher{name: "twitter"}
	// The generator succeeds with blank text, which fails validation.
	p := New(testConfig(), &fakeFetcher{posts: sourcePosts()[:1]}, &fakeGenerator{text: "   "}, sink)

	report, err := p.Run(context.Background(), nil, map[string]repost.Publisher{"twitter": pub})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Rejected)
	assert.Empty(t, pub.got, "rejected posts never reach the publisher")

	attempts := sink.recorded()
	require.Len(t, attempts, 1)
	assert.False(t, attempts[0].Success)
	assert.Equal(t, string(repost.KindValidationFailed), attempts[0].ErrorKind)
}

func TestRunContinuesPastPublisherFailures(t *testing.T) {
	sink := &memSink{}
	pub := &capturePublisher{name: "twitter", err: repost.RejectedError{Provider: "twitter", Err: errors.New("403")}}
	p := New(testConfig(), &fakeFetcher{posts: sourcePosts()}, &fakeGenerator{text: "text"}, sink)

	report, err := p.Run(context.Background(), nil, map[string]repost.Publisher{"twitter": pub})
	require.NoError(t, err)

	assert.Equal(t, 0, report.Succeeded())
	assert.Equal(t, 2, report.Failed())
	require.Len(t, report.Platforms, 1)
	assert.Equal(t, 2, report.Platforms[0].Failures[repost.KindPublishRejected])

	for _, attempt := range sink.recorded() {
		assert.False(t, attempt.Success)
		assert.Equal(t, string(repost.KindPublishRejected), attempt.ErrorKind)
	}
}

func TestRunMultiplePlatformsSortedSummaries(t *testing.T) {
	twitter := &capturePublisher{name: "twitter"}
	mastodon := &capturePublisher{name: "mastodon"}
	p := New(testConfig(), &fakeFetcher{posts: sourcePosts()}, &fakeGenerator{text: "text"}, &memSink{})

	report, err := p.Run(context.Background(), nil, map[string]repost.Publisher{
		"twitter":  twitter,
		"mastodon": mastodon,
	})
	require.NoError(t, err)

	require.Len(t, report.Platforms, 2)
	assert.Equal(t, "mastodon", report.Platforms[0].Platform)
	assert.Equal(t, "twitter", report.Platforms[1].Platform)
	assert.Equal(t, 4, report.Succeeded())
}

func TestRunUnknownPlatform(t *testing.T) {
	p := New(testConfig(), &fakeFetcher{posts: sourcePosts()}, nil, &memSink{})

	_, err := p.Run(context.Background(), nil, map[string]repost.Publisher{
		"friendster": &capturePublisher{name: "friendster"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no profile configured")
}

func TestRunFetchError(t *testing.T) {
	p := New(testConfig(), &fakeFetcher{err: errors.New("feed unreachable")}, nil, &memSink{})

	_, err := p.Run(context.Background(), []string{"techguru"}, map[string]repost.Publisher{
		"twitter": &capturePublisher{name: "twitter"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed unreachable")
}

func TestRunEmptyFeed(t *testing.T) {
	p := New(testConfig(), &fakeFetcher{}, nil, &memSink{})

	report, err := p.Run(context.Background(), nil, map[string]repost.Publisher{
		"twitter": &capturePublisher{name: "twitter"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Fetched)
	assert.Empty(t, report.Platforms)
}
