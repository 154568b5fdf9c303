package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/repost-sh/repost/internal/repost"
)

// Fetcher pulls source posts for one account.
type Fetcher interface {
	Fetch(ctx context.Context, username string, limit int) ([]repost.SourcePost, error)
}

// Feed reads source posts from a JSON document, either a local file or an
// HTTP endpoint. The document shape mirrors what the upstream extractors
// emit per post: shortcode, caption, hashtags, counters, video info.
type Feed struct {
	location   string
	httpClient *http.Client
}

var _ Fetcher = (*Feed)(nil)

// NewFeed builds a feed reader for the given location.
func NewFeed(location string) *Feed {
	return &Feed{
		location:   location,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type feedPost struct {
	Shortcode string    `json:"shortcode"`
	Username  string    `json:"username"`
	Caption   string    `json:"caption"`
	Hashtags  []string  `json:"hashtags"`
	Likes     int       `json:"likes"`
	Comments  int       `json:"comments"`
	Video     *feedclip `json:"video"`
	Analysis  *feedmeta `json:"analysis"`
}

type feedclip struct {
	DurationSeconds float64 `json:"duration_seconds"`
	SizeBytes       int64   `json:"size_bytes"`
	URL             string  `json:"url"`
	ThumbnailURL    string  `json:"thumbnail_url"`
}

type feedmeta struct {
	EngagementScore float64  `json:"engagement_score"`
	Topics          []string `json:"topics"`
	Sentiment       string   `json:"sentiment"`
}

// Fetch returns up to limit posts for username, newest first as ordered in
// the feed. An empty username matches every post. Duplicate shortcodes are
// dropped, keeping the first occurrence.
func (f *Feed) Fetch(ctx context.Context, username string, limit int) ([]repost.SourcePost, error) {
	raw, err := f.read(ctx)
	if err != nil {
		return nil, err
	}

	var entries []feedPost
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	seen := make(map[string]struct{})
	var posts []repost.SourcePost
	for _, entry := range entries {
		if username != "" && entry.Username != username {
			continue
		}
		if entry.Shortcode == "" {
			continue
		}
		if _, ok := seen[entry.Shortcode]; ok {
			continue
		}
		seen[entry.Shortcode] = struct{}{}

		posts = append(posts, toSourcePost(entry))
		if limit > 0 && len(posts) >= limit {
			break
		}
	}

	return posts, nil
}

func toSourcePost(entry feedPost) repost.SourcePost {
	post := repost.SourcePost{
		ID:       entry.Shortcode,
		Username: entry.Username,
		Caption:  entry.Caption,
		Hashtags: entry.Hashtags,
		Engage: repost.Engagement{
			Likes:    max(entry.Likes, 0),
			Comments: max(entry.Comments, 0),
		},
	}
	if entry.Video != nil {
		post.Media = &repost.MediaDescriptor{
			Kind:            repost.MediaVideo,
			DurationSeconds: entry.Video.DurationSeconds,
			SizeBytes:       entry.Video.SizeBytes,
			PathOrURL:       entry.Video.URL,
			ThumbnailURL:    entry.Video.ThumbnailURL,
		}
	}
	if entry.Analysis != nil {
		post.Analysis = &repost.Analysis{
			EngagementScore: entry.Analysis.EngagementScore,
			Topics:          entry.Analysis.Topics,
			Sentiment:       entry.Analysis.Sentiment,
		}
	}
	return post
}

func (f *Feed) read(ctx context.Context) ([]byte, error) {
	if strings.HasPrefix(f.location, "http://") || strings.HasPrefix(f.location, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.location, nil)
		if err != nil {
			return nil, fmt.Errorf("new request: %w", err)
		}
		resp, err := f.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch feed: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch feed: unexpected status %s", resp.Status)
		}
		return io.ReadAll(resp.Body)
	}

	raw, err := os.ReadFile(f.location)
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	return raw, nil
}
