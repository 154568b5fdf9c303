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

	"github.com/repost-sh/repost/internal/config"
	"github.com/repost-sh/repost/internal/logutil"
)

var (
	configPath string
	verbose    bool
)

// Execute runs the root command.
func Execute() error {
	return newRootCommand().Execute()
}

// ExecuteContext runs the root command under the given context so that
// signal-driven cancellation reaches every subcommand.
func ExecuteContext(ctx context.Context) error {
	return newRootCommand().ExecuteContext(ctx)
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repost",
		Short: "Repurpose video posts for other social networks",
		Long: "repost pulls video posts from a source feed, rewrites captions for " +
			"Twitter/X, LinkedIn, Mastodon, and Bluesky, and publishes the result " +
			"through each platform's API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logutil.SetVerbose(verbose)
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config (default $REPOST_CONFIG)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "Enable debug logging")

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newAdaptCommand())
	cmd.AddCommand(newReportCommand())
	cmd.AddCommand(newWatchCommand())
	cmd.AddCommand(newCompletionCommand())

	return cmd
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}
