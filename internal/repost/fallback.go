package repost

import (
	"fmt"
	"strconv"
	"strings"
)

// FallbackConfig tunes the deterministic text transform. The source scripts
// disagreed on both knobs (word limits of 20-35, like thresholds of
// 500-1000), so they are configuration rather than constants.
type FallbackConfig struct {
	WordLimit     int
	LikeThreshold int
}

// DefaultFallbackConfig returns the canonical tuning.
func DefaultFallbackConfig() FallbackConfig {
	return FallbackConfig{WordLimit: 30, LikeThreshold: 1000}
}

const defaultCaption = "Check out this amazing content!"

var fallbackEmojis = []string{"🔥", "💯", "✨", "🚀"}

// FallbackTransform produces engagement-flavored text from a caption
// without any external calls. It is total: it never fails and never
// returns an empty string.
func FallbackTransform(post SourcePost, cfg FallbackConfig) string {
	if cfg.WordLimit <= 0 {
		cfg.WordLimit = DefaultFallbackConfig().WordLimit
	}
	if cfg.LikeThreshold <= 0 {
		cfg.LikeThreshold = DefaultFallbackConfig().LikeThreshold
	}

	caption := strings.TrimSpace(post.Caption)
	if caption == "" {
		caption = defaultCaption
	}

	main := caption
	if idx := strings.Index(caption, "."); idx > 0 {
		main = caption[:idx]
	}

	words := strings.Fields(main)
	if len(words) > cfg.WordLimit {
		words = words[:cfg.WordLimit]
	}
	text := strings.Join(words, " ")
	if text == "" {
		text = defaultCaption
	}

	if post.Engage.Likes > cfg.LikeThreshold {
		text += fmt.Sprintf(" 🔥 (%s likes!)", groupThousands(post.Engage.Likes))
	}

	if !containsAny(text, fallbackEmojis) {
		text += " " + fallbackEmojis[0]
	}

	return text
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// groupThousands formats n with comma separators, e.g. 2847 -> "2,847".
func groupThousands(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
