package repost

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallbackTakesFirstSentence(t *testing.T) {
	post := SourcePost{Caption: "Big launch today. More details follow tomorrow."}

	text := FallbackTransform(post, DefaultFallbackConfig())

	assert.True(t, strings.HasPrefix(text, "Big launch today"))
	assert.NotContains(t, text, "More details")
}

func TestFallbackWordLimit(t *testing.T) {
	post := SourcePost{Caption: strings.Repeat("word ", 60)}

	text := FallbackTransform(post, FallbackConfig{WordLimit: 10, LikeThreshold: 1000})

	// 10 words plus the appended default emoji.
	assert.Len(t, strings.Fields(text), 11)
}

func TestFallbackHighEngagementAnnotation(t *testing.T) {
	post := SourcePost{
		Caption: "An incredible demo",
		Engage:  Engagement{Likes: 5000},
	}

	text := FallbackTransform(post, DefaultFallbackConfig())

	assert.Contains(t, text, "5,000")
	assert.Contains(t, text, "likes!")
}

func TestFallbackBelowThresholdNoAnnotation(t *testing.T) {
	post := SourcePost{
		Caption: "An incredible demo",
		Engage:  Engagement{Likes: 900},
	}

	text := FallbackTransform(post, DefaultFallbackConfig())

	assert.NotContains(t, text, "likes!")
}

func TestFallbackAppendsEmojiWhenMissing(t *testing.T) {
	text := FallbackTransform(SourcePost{Caption: "plain words only"}, DefaultFallbackConfig())
	assert.Contains(t, text, "🔥")
}

func TestFallbackKeepsExistingEmoji(t *testing.T) {
	text := FallbackTransform(SourcePost{Caption: "already excited 🚀 about this"}, DefaultFallbackConfig())
	assert.NotContains(t, text, "🔥")
}

func TestFallbackNeverEmpty(t *testing.T) {
	cases := []SourcePost{
		{},
		{Caption: ""},
		{Caption: "   "},
		{Caption: "."},
		{Caption: ". . ."},
		{Caption: "x"},
	}

	for _, post := range cases {
		text := FallbackTransform(post, DefaultFallbackConfig())
		assert.NotEmpty(t, strings.TrimSpace(text))
	}
}

func TestFallbackDeterministic(t *testing.T) {
	post := SourcePost{Caption: "Some caption here. Second sentence.", Engage: Engagement{Likes: 2847}}

	first := FallbackTransform(post, DefaultFallbackConfig())
	second := FallbackTransform(post, DefaultFallbackConfig())

	assert.Equal(t, first, second)
}

func TestGroupThousands(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{2847, "2,847"},
		{1234567, "1,234,567"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, groupThousands(tt.in))
	}
}
