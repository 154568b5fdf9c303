package repost

import (
	"context"
	"time"
)

// MediaKind distinguishes the two media shapes a platform payload can carry.
type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaImage MediaKind = "image"
)

// MediaDescriptor describes the media attached to a source post.
type MediaDescriptor struct {
	Kind            MediaKind
	DurationSeconds float64
	SizeBytes       int64
	PathOrURL       string
	ThumbnailURL    string
}

// Engagement holds the counters scraped alongside a source post.
// Counters are never negative.
type Engagement struct {
	Likes    int
	Comments int
}

// Analysis carries advisory fields produced by an external content
// analyzer. They are opaque here and never validated or computed.
type Analysis struct {
	EngagementScore float64
	Topics          []string
	Sentiment       string
}

// SourcePost is one originating piece of content to be repurposed.
// ID is the platform-specific shortcode, unique per source platform.
type SourcePost struct {
	ID       string
	Username string
	Caption  string
	Hashtags []string
	Engage   Engagement
	Media    *MediaDescriptor
	Analysis *Analysis
}

// PlatformProfile is the static constraint set for a publishing target.
// Thresholds are fixed at configuration time and never mutated during a run.
type PlatformProfile struct {
	Name                    string
	MaxTextLength           int
	MaxHashtags             int
	VideoMaxDurationSeconds float64
	VideoMaxSizeBytes       int64
	InterPostDelay          time.Duration
}

// MediaRef is the media portion of an adapted post. Kind is video only
// when the original media fits the profile limits; otherwise the post
// degrades to an image reference carrying a note.
type MediaRef struct {
	Kind      MediaKind
	PathOrURL string
	Note      string
}

// AdaptedPost is the shaped, constraint-compliant payload ready for a
// Publisher. It is constructed once per (SourcePost, PlatformProfile)
// pair and treated as immutable afterwards.
type AdaptedPost struct {
	Text     string
	Hashtags []string
	Media    *MediaRef
	SourceID string
	Platform string
	// TextLimit records the profile budget so publishers can render the
	// wire body without re-deriving the profile.
	TextLimit int
}

// ErrorKind classifies a publish attempt failure.
type ErrorKind string

const (
	KindValidationFailed    ErrorKind = "ValidationFailed"
	KindProviderUnavailable ErrorKind = "ProviderUnavailable"
	KindPublishRejected     ErrorKind = "PublishRejected"
	KindUnknown             ErrorKind = "Unknown"
)

// PublishResult reports the outcome of a single publish attempt.
// RemoteID is set iff Success; Kind is set iff not Success.
type PublishResult struct {
	Success  bool
	RemoteID string
	Kind     ErrorKind
	Err      string
}

// Publisher abstracts a social network that can accept a finished payload.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, post AdaptedPost) (PublishResult, error)
}
