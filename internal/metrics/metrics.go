package metrics

import (
	"context"
	"time"
)

// Attempt is one append-only publish-attempt record. It is never mutated
// after being written.
type Attempt struct {
	Timestamp      time.Time
	RunID          string
	SourceUser     string
	SourceID       string
	TargetPlatform string
	Success        bool
	ErrorKind      string
	TextLength     int
	Elapsed        time.Duration
}

// Sink receives one record per publish attempt.
type Sink interface {
	Record(ctx context.Context, attempt Attempt) error
}

// NopSink discards records; used by dry runs.
type NopSink struct{}

func (NopSink) Record(context.Context, Attempt) error { return nil }

// PlatformSummary aggregates attempts for one target platform.
type PlatformSummary struct {
	Platform  string
	Total     int
	Succeeded int
	Failed    int
}

// Summary aggregates attempts over a reporting window.
type Summary struct {
	Total        int
	Succeeded    int
	Failed       int
	SuccessRate  float64
	AvgElapsedMS float64
	Platforms    []PlatformSummary
}
