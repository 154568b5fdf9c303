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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/repost-sh/repost/internal/metrics"
)

var reportDays int

func newReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize recorded publish attempts",
		RunE:  runReport,
	}

	cmd.Flags().IntVar(&reportDays, "days", 30, "Reporting window in days")

	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := metrics.NewStore(cfg.Metrics.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	since := time.Now().AddDate(0, 0, -reportDays)
	summary, err := store.Summary(cmd.Context(), since)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "last %d day(s): %d attempt(s), %d ok, %d failed",
		reportDays, summary.Total, summary.Succeeded, summary.Failed)
	if summary.Total > 0 {
		fmt.Fprintf(out, " (%.0f%% success, avg %.0fms)", summary.SuccessRate*100, summary.AvgElapsedMS)
	}
	fmt.Fprintln(out)

	for _, platform := range summary.Platforms {
		fmt.Fprintf(out, "  %s: %d ok, %d failed\n", platform.Platform, platform.Succeeded, platform.Failed)
	}
	return nil
}
