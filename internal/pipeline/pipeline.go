package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/repost-sh/repost/internal/config"
	"github.com/repost-sh/repost/internal/logutil"
	"github.com/repost-sh/repost/internal/metrics"
	"github.com/repost-sh/repost/internal/provider"
	"github.com/repost-sh/repost/internal/repost"
	"github.com/repost-sh/repost/internal/source"
)

// Pipeline wires fetch -> generate-or-fallback -> adapt -> publish ->
// record. Each post is processed to completion before the next; independent
// platforms run concurrently with their own delay timers.
type Pipeline struct {
	cfg       config.Config
	fetcher   source.Fetcher
	generator provider.Generator
	sink      metrics.Sink
}

// New assembles a pipeline from explicit collaborators; there is no
// ambient global configuration.
func New(cfg config.Config, fetcher source.Fetcher, generator provider.Generator, sink metrics.Sink) *Pipeline {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Pipeline{cfg: cfg, fetcher: fetcher, generator: generator, sink: sink}
}

// RunReport is the batch summary handed back to the caller: per-platform
// outcomes plus items dropped by validation before reaching a publisher.
type RunReport struct {
	RunID     string
	Fetched   int
	Rejected  int
	Platforms []repost.BatchSummary
}

// Succeeded totals successful publishes across platforms.
func (r RunReport) Succeeded() int {
	n := 0
	for _, p := range r.Platforms {
		n += p.Succeeded
	}
	return n
}

// Failed totals failed publish attempts across platforms.
func (r RunReport) Failed() int {
	n := 0
	for _, p := range r.Platforms {
		n += p.Failed
	}
	return n
}

// Run processes the given accounts against every publisher in the map.
// Publisher keys must match configured platform profile names.
func (p *Pipeline) Run(ctx context.Context, usernames []string, publishers map[string]repost.Publisher) (RunReport, error) {
	report := RunReport{RunID: uuid.NewString()}

	posts, userBySource, err := p.fetchAll(ctx, usernames)
	if err != nil {
		return report, err
	}
	report.Fetched = len(posts)
	if len(posts) == 0 {
		logutil.Warnf("no source posts found")
		return report, nil
	}

	platforms := make([]string, 0, len(publishers))
	for name := range publishers {
		platforms = append(platforms, name)
	}
	sort.Strings(platforms)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		summaries []repost.BatchSummary
	)

	for _, name := range platforms {
		profile, ok := p.cfg.ProfileFor(name)
		if !ok {
			return report, fmt.Errorf("no profile configured for platform %q", name)
		}

		adapted, rejected := p.adaptAll(ctx, posts, profile, report.RunID, userBySource)
		mu.Lock()
		report.Rejected += rejected
		mu.Unlock()
		if len(adapted) == 0 {
			logutil.Warnf("no publishable content for %s", name)
			continue
		}

		publisher := &recordingPublisher{
			inner:        publishers[name],
			sink:         p.sink,
			runID:        report.RunID,
			userBySource: userBySource,
		}
		orch := repost.NewOrchestrator(publisher, profile.InterPostDelay, p.cfg.Backoff.Policy())

		wg.Add(1)
		go func(batch []repost.AdaptedPost) {
			defer wg.Done()
			summary := orch.PublishBatch(ctx, batch)
			mu.Lock()
			summaries = append(summaries, summary)
			mu.Unlock()
		}(adapted)
	}

	wg.Wait()

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Platform < summaries[j].Platform })
	report.Platforms = summaries
	return report, nil
}

func (p *Pipeline) fetchAll(ctx context.Context, usernames []string) ([]repost.SourcePost, map[string]string, error) {
	if len(usernames) == 0 {
		usernames = []string{""}
	}

	var posts []repost.SourcePost
	userBySource := make(map[string]string)
	seen := make(map[string]struct{})
	for _, username := range usernames {
		fetched, err := p.fetcher.Fetch(ctx, username, p.cfg.Feed.MaxPostsPerUser)
		if err != nil {
			return nil, nil, fmt.Errorf("fetch posts for %q: %w", username, err)
		}
		for _, post := range fetched {
			if _, ok := seen[post.ID]; ok {
				continue
			}
			seen[post.ID] = struct{}{}
			posts = append(posts, post)
			userBySource[post.ID] = post.Username
		}
	}
	return posts, userBySource, nil
}

// adaptAll produces publishable payloads for one platform. Provider
// failures are absorbed by the deterministic fallback; validation failures
// are recorded and the item skipped, never handed to a publisher.
func (p *Pipeline) adaptAll(ctx context.Context, posts []repost.SourcePost, profile repost.PlatformProfile, runID string, userBySource map[string]string) ([]repost.AdaptedPost, int) {
	fallbackCfg := repost.FallbackConfig{
		WordLimit:     p.cfg.Fallback.WordLimit,
		LikeThreshold: p.cfg.Fallback.LikeThreshold,
	}

	var adapted []repost.AdaptedPost
	rejected := 0
	for _, post := range posts {
		rawText := p.candidateText(ctx, post, profile, fallbackCfg)

		payload, err := repost.Adapt(post, profile, rawText)
		if err != nil {
			rejected++
			logutil.Warnf("skipping %s for %s: %v", post.ID, profile.Name, err)
			attempt := metrics.Attempt{
				Timestamp:      time.Now(),
				RunID:          runID,
				SourceUser:     userBySource[post.ID],
				SourceID:       post.ID,
				TargetPlatform: profile.Name,
				Success:        false,
				ErrorKind:      string(repost.KindValidationFailed),
			}
			if recErr := p.sink.Record(ctx, attempt); recErr != nil {
				logutil.Warnf("record validation failure: %v", recErr)
			}
			continue
		}
		adapted = append(adapted, payload)
	}
	return adapted, rejected
}

// candidateText asks the generator for platform text and falls back to the
// deterministic transform when the provider is absent or errors.
func (p *Pipeline) candidateText(ctx context.Context, post repost.SourcePost, profile repost.PlatformProfile, fallbackCfg repost.FallbackConfig) string {
	if p.generator != nil {
		prompt := provider.BuildPrompt(post, profile)
		text, err := p.generator.Generate(ctx, prompt, profile.MaxTextLength)
		if err == nil {
			return text
		}
		logutil.Debugf("provider unavailable for %s, using fallback: %v", post.ID, err)
	}
	return repost.FallbackTransform(post, fallbackCfg)
}

// recordingPublisher decorates a Publisher with append-only metrics, one
// record per publish attempt.
type recordingPublisher struct {
	inner        repost.Publisher
	sink         metrics.Sink
	runID        string
	userBySource map[string]string
}

func (r *recordingPublisher) Name() string { return r.inner.Name() }

func (r *recordingPublisher) Publish(ctx context.Context, post repost.AdaptedPost) (repost.PublishResult, error) {
	start := time.Now()
	result, err := r.inner.Publish(ctx, post)
	elapsed := time.Since(start)

	attempt := metrics.Attempt{
		Timestamp:      start,
		RunID:          r.runID,
		SourceUser:     r.userBySource[post.SourceID],
		SourceID:       post.SourceID,
		TargetPlatform: r.inner.Name(),
		Success:        err == nil && result.Success,
		TextLength:     len([]rune(post.Text)),
		Elapsed:        elapsed,
	}
	if !attempt.Success {
		switch {
		case err != nil:
			attempt.ErrorKind = string(repost.Classify(err))
		case result.Kind != "":
			attempt.ErrorKind = string(result.Kind)
		default:
			attempt.ErrorKind = string(repost.KindUnknown)
		}
	}
	if recErr := r.sink.Record(ctx, attempt); recErr != nil {
		logutil.Warnf("record publish attempt: %v", recErr)
	}

	return result, err
}
