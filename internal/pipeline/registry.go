package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/repost-sh/repost/internal/logutil"
	"github.com/repost-sh/repost/internal/repost"
	"github.com/repost-sh/repost/internal/repost/bluesky"
	"github.com/repost-sh/repost/internal/repost/linkedin"
	"github.com/repost-sh/repost/internal/repost/mastodon"
	"github.com/repost-sh/repost/internal/repost/twitter"
)

// PublisherFactory constructs a platform publisher from the environment.
type PublisherFactory func(ctx context.Context) (repost.Publisher, error)

// Registry returns the closed set of supported platform publishers, built
// once at startup rather than re-derived per call site.
func Registry() map[string]PublisherFactory {
	return map[string]PublisherFactory{
		"twitter":  twitter.New,
		"linkedin": linkedin.New,
		"mastodon": mastodon.New,
		"bluesky": func(ctx context.Context) (repost.Publisher, error) {
			return bluesky.New(ctx, bluesky.Config{})
		},
	}
}

// BuildPublishers constructs one publisher per requested target, joining
// constructor errors so the operator sees every misconfigured platform at
// once.
func BuildPublishers(ctx context.Context, targets []string) (map[string]repost.Publisher, error) {
	registry := Registry()

	publishers := make(map[string]repost.Publisher, len(targets))
	var errs []error
	for _, target := range targets {
		factory, ok := registry[target]
		if !ok {
			errs = append(errs, fmt.Errorf("target %q is not implemented", target))
			continue
		}
		publisher, err := factory(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", target, err))
			continue
		}
		publishers[target] = publisher
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if len(publishers) == 0 {
		return nil, errors.New("no targets available")
	}
	return publishers, nil
}

// DryRunPublisher logs what would be posted without performing network calls.
type DryRunPublisher struct {
	Platform string
}

func (d DryRunPublisher) Name() string { return d.Platform }

func (d DryRunPublisher) Publish(ctx context.Context, post repost.AdaptedPost) (repost.PublishResult, error) {
	logutil.Infof("[dry-run] would post to %s: source=%s text=%q hashtags=%d", d.Platform, post.SourceID, post.Text, len(post.Hashtags))
	if post.Media != nil {
		logutil.Infof("[dry-run] media: kind=%s ref=%s note=%q", post.Media.Kind, post.Media.PathOrURL, post.Media.Note)
	}
	return repost.PublishResult{Success: true, RemoteID: "dry-run"}, nil
}
