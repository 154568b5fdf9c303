package pipeline

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/repost-sh/repost/internal/logutil"
)

// Watch runs job on the given cron expression until ctx is cancelled. Runs
// never overlap: a tick that arrives while the previous run is still in
// flight is skipped.
func Watch(ctx context.Context, cronExpr string, job func(context.Context)) error {
	scheduler := cron.New()

	running := make(chan struct{}, 1)
	_, err := scheduler.AddFunc(cronExpr, func() {
		select {
		case running <- struct{}{}:
			defer func() { <-running }()
			job(ctx)
		default:
			logutil.Warnf("previous run still in progress, skipping tick")
		}
	})
	if err != nil {
		return fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}

	logutil.Infof("watching on schedule %q", cronExpr)
	scheduler.Start()
	<-ctx.Done()

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}
