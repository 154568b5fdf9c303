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
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/repost-sh/repost/internal/repost"
)

var (
	adaptPlatform string
	adaptCaption  string
	adaptText     string
	adaptHashtags []string
	adaptLikes    int
	adaptComments int
)

func newAdaptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adapt",
		Short: "Shape a single post for a platform without publishing",
		Long: "adapt runs the content adapter on one caption and prints the resulting " +
			"payload as JSON. When --text is omitted the deterministic fallback " +
			"transform supplies the candidate text.",
		Example: `  repost adapt --platform twitter --caption "Big launch today. Details soon." --likes 2847
  repost adapt --platform linkedin --caption "..." --text "Custom candidate text #AI"`,
		RunE: runAdapt,
	}

	cmd.Flags().StringVar(&adaptPlatform, "platform", "twitter", "Target platform profile")
	cmd.Flags().StringVar(&adaptCaption, "caption", "", "Source caption")
	cmd.Flags().StringVar(&adaptText, "text", "", "Candidate text (default: fallback transform of the caption)")
	cmd.Flags().StringSliceVar(&adaptHashtags, "hashtag", nil, "Source hashtags")
	cmd.Flags().IntVar(&adaptLikes, "likes", 0, "Source like count")
	cmd.Flags().IntVar(&adaptComments, "comments", 0, "Source comment count")
	cmd.Flags().SortFlags = false

	return cmd
}

func runAdapt(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	profile, ok := cfg.ProfileFor(strings.ToLower(adaptPlatform))
	if !ok {
		return fmt.Errorf("no profile configured for platform %q", adaptPlatform)
	}

	if adaptLikes < 0 || adaptComments < 0 {
		return errors.New("engagement counters must not be negative")
	}

	post := repost.SourcePost{
		ID:       "adhoc",
		Caption:  adaptCaption,
		Hashtags: adaptHashtags,
		Engage:   repost.Engagement{Likes: adaptLikes, Comments: adaptComments},
	}

	rawText := adaptText
	if rawText == "" {
		rawText = repost.FallbackTransform(post, repost.FallbackConfig{
			WordLimit:     cfg.Fallback.WordLimit,
			LikeThreshold: cfg.Fallback.LikeThreshold,
		})
	}

	payload, err := repost.Adapt(post, profile, rawText)
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(struct {
		Platform string   `json:"platform"`
		Text     string   `json:"text"`
		Hashtags []string `json:"hashtags"`
		Body     string   `json:"body"`
	}{
		Platform: payload.Platform,
		Text:     payload.Text,
		Hashtags: payload.Hashtags,
		Body:     payload.Body(),
	}, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return nil
}
