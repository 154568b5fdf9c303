package repost

import (
	"context"
	"time"

	"github.com/repost-sh/repost/internal/logutil"
)

// Backoff is the single rate-limit wait policy shared by all platform
// loops, replacing per-script sleep constants. Attempts of 1 means no
// automatic retry, which is the default behavior.
type Backoff struct {
	Initial    time.Duration
	Multiplier float64
	Max        time.Duration
	Attempts   int
}

// DefaultBackoff returns the no-retry policy.
func DefaultBackoff() Backoff {
	return Backoff{Initial: 5 * time.Second, Multiplier: 2, Max: 2 * time.Minute, Attempts: 1}
}

func (b Backoff) attempts() int {
	if b.Attempts < 1 {
		return 1
	}
	return b.Attempts
}

// wait returns the pause before retry number attempt (1-based).
func (b Backoff) wait(attempt int) time.Duration {
	d := b.Initial
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * b.Multiplier)
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	return d
}

// BatchSummary reports the outcome of one platform batch. Results holds one
// entry per attempted post in order; posts skipped after cancellation are
// not attempted and only counted in Skipped.
type BatchSummary struct {
	Platform  string
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Failures  map[ErrorKind]int
	Results   []PublishResult
}

// Orchestrator serializes publishing to one platform's Publisher, spacing
// posts with the profile's inter-post delay. Independent platforms run with
// separate Orchestrators and may proceed concurrently.
type Orchestrator struct {
	publisher Publisher
	delay     time.Duration
	backoff   Backoff
}

// NewOrchestrator builds an orchestration loop for one publisher.
func NewOrchestrator(publisher Publisher, delay time.Duration, backoff Backoff) *Orchestrator {
	return &Orchestrator{publisher: publisher, delay: delay, backoff: backoff}
}

// PublishBatch posts sequentially. A single post failure never aborts the
// batch; context cancellation abandons the remaining posts cleanly while
// already-published posts stand.
func (o *Orchestrator) PublishBatch(ctx context.Context, posts []AdaptedPost) BatchSummary {
	summary := BatchSummary{
		Platform: o.publisher.Name(),
		Total:    len(posts),
		Failures: make(map[ErrorKind]int),
	}

	for i, post := range posts {
		if i > 0 && o.delay > 0 {
			if err := sleepCtx(ctx, o.delay); err != nil {
				summary.Skipped = len(posts) - i
				return summary
			}
		}
		if ctx.Err() != nil {
			summary.Skipped = len(posts) - i
			return summary
		}

		result := o.publishOne(ctx, post)
		summary.Results = append(summary.Results, result)
		if result.Success {
			summary.Succeeded++
			logutil.Infof("published to %s: source=%s remote=%s", summary.Platform, post.SourceID, result.RemoteID)
		} else {
			summary.Failed++
			summary.Failures[result.Kind]++
			logutil.Errorf("publish to %s failed: source=%s kind=%s err=%s", summary.Platform, post.SourceID, result.Kind, result.Err)
		}
	}

	return summary
}

// Schedule publishes a payload at the given time. Most platform APIs lack
// native scheduling, so this degrades to an in-process delayed queue: it
// blocks until the deadline (or cancellation) and then publishes.
func (o *Orchestrator) Schedule(ctx context.Context, post AdaptedPost, at time.Time) (PublishResult, error) {
	if wait := time.Until(at); wait > 0 {
		logutil.Debugf("delaying %s post for %s until %s", o.publisher.Name(), post.SourceID, at.Format(time.RFC3339))
		if err := sleepCtx(ctx, wait); err != nil {
			return PublishResult{Success: false, Kind: KindUnknown, Err: err.Error()}, err
		}
	}
	return o.publishOne(ctx, post), nil
}

func (o *Orchestrator) publishOne(ctx context.Context, post AdaptedPost) PublishResult {
	var result PublishResult
	var err error

	for attempt := 1; attempt <= o.backoff.attempts(); attempt++ {
		if attempt > 1 {
			if sleepErr := sleepCtx(ctx, o.backoff.wait(attempt-1)); sleepErr != nil {
				break
			}
			logutil.Debugf("retrying %s publish: source=%s attempt=%d", o.publisher.Name(), post.SourceID, attempt)
		}
		result, err = o.publisher.Publish(ctx, post)
		if err == nil && result.Success {
			return result
		}
		if ctx.Err() != nil {
			break
		}
	}

	if err != nil {
		return PublishResult{Success: false, Kind: Classify(err), Err: err.Error()}
	}
	if result.Kind == "" {
		result.Kind = KindUnknown
	}
	return result
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
