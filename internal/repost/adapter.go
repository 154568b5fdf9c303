package repost

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const fallbackMediaNote = "media exceeds platform limits; using fallback image"

var (
	hashtagPattern  = regexp.MustCompile(`#\w+`)
	hashtagWellForm = regexp.MustCompile(`^\w+$`)
)

// Adapt transforms a source post plus already-generated candidate text into
// a payload that satisfies the profile constraints, or rejects it with a
// ValidationError. It is a pure function: no I/O, no hidden state, and the
// same inputs always yield the same output.
func Adapt(post SourcePost, profile PlatformProfile, rawText string) (AdaptedPost, error) {
	text := shapeText(rawText, profile.MaxTextLength)
	tags := selectHashtags(rawText, post.Hashtags, profile.MaxHashtags)
	media := selectMedia(post.Media, profile)

	// Final gate: the platform API must never see out-of-bounds content
	// regardless of how rawText was produced.
	if strings.TrimSpace(text) == "" {
		return AdaptedPost{}, ValidationError{Check: CheckEmptyText, Reason: "no text after shaping"}
	}
	if n := utf8.RuneCountInString(text); n > profile.MaxTextLength {
		return AdaptedPost{}, ValidationError{
			Check:  CheckTextTooLong,
			Reason: fmt.Sprintf("%d chars exceeds limit %d", n, profile.MaxTextLength),
		}
	}
	if media != nil && media.Kind == MediaVideo {
		if post.Media == nil || !videoFits(*post.Media, profile) {
			return AdaptedPost{}, ValidationError{
				Check:  CheckMediaNoncompliant,
				Reason: "video violates profile duration or size limit",
			}
		}
	}

	return AdaptedPost{
		Text:      text,
		Hashtags:  tags,
		Media:     media,
		SourceID:  post.ID,
		Platform:  profile.Name,
		TextLimit: profile.MaxTextLength,
	}, nil
}

// Body renders the wire text for a publisher: the shaped text plus any
// selected hashtags not already present, appended only while the result
// stays within the recorded character budget.
func (p AdaptedPost) Body() string {
	body := p.Text
	length := utf8.RuneCountInString(body)
	for _, tag := range p.Hashtags {
		if strings.Contains(body, tag) {
			continue
		}
		extra := utf8.RuneCountInString(tag) + 1
		if p.TextLimit > 0 && length+extra > p.TextLimit {
			break
		}
		body += " " + tag
		length += extra
	}
	return body
}

// shapeText enforces the character budget. Oversized text is cut to
// maxLen-3 runes, preferring a whitespace boundary, with "..." appended.
func shapeText(raw string, maxLen int) string {
	text := strings.TrimSpace(raw)
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}

	cut := maxLen - 3
	if cut <= 0 {
		return string(runes[:maxLen])
	}

	head := runes[:cut]
	if idx := lastSpace(head); idx > 0 {
		head = head[:idx]
	}
	return strings.TrimRight(string(head), " \t\n") + "..."
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		switch runes[i] {
		case ' ', '\t', '\n':
			return i
		}
	}
	return -1
}

// selectHashtags unions inline hashtags from the candidate text with the
// source post's own tags, normalized to a leading '#'. Order is first-seen,
// dedup is case-sensitive, and the result is capped at limit entries.
func selectHashtags(rawText string, original []string, limit int) []string {
	if limit <= 0 {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	add := func(tag string) {
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	for _, tag := range hashtagPattern.FindAllString(rawText, -1) {
		add(tag)
	}
	for _, tag := range original {
		tag = strings.TrimSpace(strings.TrimPrefix(tag, "#"))
		if !hashtagWellForm.MatchString(tag) {
			continue
		}
		add("#" + tag)
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// selectMedia degrades oversized video to an image reference rather than
// ever emitting a video that violates the profile.
func selectMedia(media *MediaDescriptor, profile PlatformProfile) *MediaRef {
	if media == nil {
		return nil
	}

	switch media.Kind {
	case MediaVideo:
		if videoFits(*media, profile) {
			return &MediaRef{Kind: MediaVideo, PathOrURL: media.PathOrURL}
		}
		return &MediaRef{
			Kind:      MediaImage,
			PathOrURL: media.ThumbnailURL,
			Note:      fallbackMediaNote,
		}
	case MediaImage:
		return &MediaRef{Kind: MediaImage, PathOrURL: media.PathOrURL}
	}
	return nil
}

func videoFits(media MediaDescriptor, profile PlatformProfile) bool {
	return media.DurationSeconds <= profile.VideoMaxDurationSeconds &&
		media.SizeBytes <= profile.VideoMaxSizeBytes
}
