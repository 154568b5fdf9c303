package provider

import (
	"fmt"
	"strings"

	"github.com/repost-sh/repost/internal/repost"
)

// Per-platform transformation prompts. The description slot carries the
// advisory analysis summary when present and stays empty otherwise.
const (
	twitterPrompt = `Transform this video content into an engaging Twitter post.

Requirements:
- Maximum %d characters
- Include relevant hashtags (max %d)
- Make it engaging and shareable
- Maintain the core message
- Use Twitter-appropriate tone

Original content: %s
Video description: %s`

	linkedinPrompt = `Transform this video content into a professional LinkedIn post.

Requirements:
- Professional tone
- Include relevant industry hashtags (max %d)
- Add value for a professional audience
- Encourage engagement
- Maximum %d characters

Original content: %s
Video description: %s`

	genericPrompt = `Rewrite this video caption as a post for %s.

Requirements:
- Maximum %d characters
- Include up to %d relevant hashtags
- Keep the original message intact

Original content: %s
Video description: %s`
)

// BuildPrompt renders the transformation prompt for one post and profile.
func BuildPrompt(post repost.SourcePost, profile repost.PlatformProfile) string {
	description := describeAnalysis(post.Analysis)
	switch profile.Name {
	case "twitter":
		return fmt.Sprintf(twitterPrompt, profile.MaxTextLength, profile.MaxHashtags, post.Caption, description)
	case "linkedin":
		return fmt.Sprintf(linkedinPrompt, profile.MaxHashtags, profile.MaxTextLength, post.Caption, description)
	default:
		return fmt.Sprintf(genericPrompt, profile.Name, profile.MaxTextLength, profile.MaxHashtags, post.Caption, description)
	}
}

func describeAnalysis(analysis *repost.Analysis) string {
	if analysis == nil {
		return ""
	}
	parts := make([]string, 0, 2)
	if len(analysis.Topics) > 0 {
		parts = append(parts, "topics: "+strings.Join(analysis.Topics, ", "))
	}
	if analysis.Sentiment != "" {
		parts = append(parts, "sentiment: "+analysis.Sentiment)
	}
	return strings.Join(parts, "; ")
}
