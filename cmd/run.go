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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/repost-sh/repost/internal/metrics"
	"github.com/repost-sh/repost/internal/pipeline"
	"github.com/repost-sh/repost/internal/provider"
	"github.com/repost-sh/repost/internal/repost"
	"github.com/repost-sh/repost/internal/source"
)

var (
	runTargets []string
	runUsers   []string
	runDryRun  bool
	runYes     bool
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, adapt, and publish a batch of posts",
		Example: `  repost run --target twitter --user someaccount
  repost run --targets all --dry-run
  repost run --yes`,
		RunE: runRun,
	}

	cmd.Flags().StringSliceVar(&runTargets, "target", []string{"all"}, "Targets to post to (twitter, linkedin, mastodon, bluesky, or all)")
	cmd.Flags().StringSliceVar(&runUsers, "user", nil, "Source accounts to pull from (default: every account in the feed)")
	cmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Adapt and print actions without posting")
	cmd.Flags().BoolVarP(&runYes, "yes", "y", false, "Skip the live-posting confirmation prompt")
	cmd.Flags().SortFlags = false

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	targets, err := normalizeTargets(runTargets)
	if err != nil {
		return err
	}

	if !runDryRun && !runYes {
		ok, err := confirmLive(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("aborted")
		}
	}

	var sink metrics.Sink = metrics.NopSink{}
	if !runDryRun {
		store, err := metrics.NewStore(cfg.Metrics.DataDir)
		if err != nil {
			return err
		}
		defer store.Close()
		sink = store
	}

	var publishers map[string]repost.Publisher
	if runDryRun {
		publishers = make(map[string]repost.Publisher, len(targets))
		for _, target := range targets {
			publishers[target] = pipeline.DryRunPublisher{Platform: target}
		}
	} else {
		publishers, err = pipeline.BuildPublishers(ctx, targets)
		if err != nil {
			return err
		}
	}

	pipe := pipeline.New(cfg, source.NewFeed(cfg.Feed.Location), provider.NewOpenAI(cfg.Provider), sink)

	report, err := pipe.Run(ctx, runUsers, publishers)
	if err != nil {
		return err
	}

	printReport(cmd.OutOrStdout(), report)

	if report.Failed() > 0 {
		return fmt.Errorf("%d publish attempt(s) failed", report.Failed())
	}
	return nil
}

func printReport(out io.Writer, report pipeline.RunReport) {
	fmt.Fprintf(out, "run %s: fetched %d post(s), %d rejected by validation\n", report.RunID, report.Fetched, report.Rejected)
	for _, summary := range report.Platforms {
		fmt.Fprintf(out, "  %s: %d ok, %d failed", summary.Platform, summary.Succeeded, summary.Failed)
		if summary.Skipped > 0 {
			fmt.Fprintf(out, ", %d skipped", summary.Skipped)
		}
		if len(summary.Failures) > 0 {
			kinds := make([]string, 0, len(summary.Failures))
			for kind, count := range summary.Failures {
				kinds = append(kinds, fmt.Sprintf("%s=%d", kind, count))
			}
			sort.Strings(kinds)
			fmt.Fprintf(out, " (%s)", strings.Join(kinds, ", "))
		}
		fmt.Fprintln(out)
	}
}

func confirmLive(in io.Reader, out io.Writer) (bool, error) {
	file, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		// Non-interactive invocation; require --yes to post for real.
		return false, errors.New("refusing to post without a terminal; pass --yes to confirm")
	}

	fmt.Fprint(out, "continue with live posting? (yes/no): ")
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "yes" || answer == "y", nil
}

func normalizeTargets(values []string) ([]string, error) {
	supported := pipeline.Registry()

	all := make([]string, 0, len(supported))
	for name := range supported {
		all = append(all, name)
	}
	sort.Strings(all)

	if len(values) == 0 {
		return all, nil
	}

	result := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, raw := range values {
		raw = strings.TrimSpace(strings.ToLower(raw))
		if raw == "" {
			continue
		}
		if raw == "all" {
			return all, nil
		}
		if _, ok := supported[raw]; !ok {
			return nil, fmt.Errorf("unsupported target %q", raw)
		}
		if _, ok := seen[raw]; ok {
			continue
		}
		seen[raw] = struct{}{}
		result = append(result, raw)
	}

	if len(result) == 0 {
		return nil, errors.New("no targets selected")
	}

	sort.Strings(result)
	return result, nil
}
