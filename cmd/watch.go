/*
Copyright © 2025 repost contributors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/repost-sh/repost/internal/logutil"
	"github.com/repost-sh/repost/internal/metrics"
	"github.com/repost-sh/repost/internal/pipeline"
	"github.com/repost-sh/repost/internal/provider"
	"github.com/repost-sh/repost/internal/source"
)

var (
	watchTargets []string
	watchUsers   []string
	watchCron    string
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the pipeline on a recurring schedule",
		Long: "watch re-runs the publish pipeline on a cron schedule until " +
			"interrupted. The expression defaults to the configured schedule.",
		Example: `  repost watch --target twitter --cron "0 */6 * * *"`,
		RunE:    runWatch,
	}

	cmd.Flags().StringSliceVar(&watchTargets, "target", []string{"all"}, "Targets to post to (twitter, linkedin, mastodon, bluesky, or all)")
	cmd.Flags().StringSliceVar(&watchUsers, "user", nil, "Source accounts to pull from")
	cmd.Flags().StringVar(&watchCron, "cron", "", "Cron expression (default from config)")
	cmd.Flags().SortFlags = false

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	targets, err := normalizeTargets(watchTargets)
	if err != nil {
		return err
	}

	publishers, err := pipeline.BuildPublishers(ctx, targets)
	if err != nil {
		return err
	}

	store, err := metrics.NewStore(cfg.Metrics.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	pipe := pipeline.New(cfg, source.NewFeed(cfg.Feed.Location), provider.NewOpenAI(cfg.Provider), store)

	cronExpr := watchCron
	if cronExpr == "" {
		cronExpr = cfg.Schedule.CronExpression
	}

	return pipeline.Watch(ctx, cronExpr, func(jobCtx context.Context) {
		report, err := pipe.Run(jobCtx, watchUsers, publishers)
		if err != nil {
			logutil.Errorf("scheduled run failed: %v", err)
			return
		}
		logutil.Infof("scheduled run %s: %d ok, %d failed, %d rejected",
			report.RunID, report.Succeeded(), report.Failed(), report.Rejected)
	})
}
