// Package narration rewrites extracted text before it is spoken.
package narration

import (
	"strings"

	"github.com/samber/lo"

	"pdfnarrator/internal/domain"
)

const (
	sentenceSeparator  = ". "
	shortSentenceLimit = 3
	bulletMarker       = "• "

	descriptivePreamble = "Let me explain this in detail.\n\n"
)

var moodPrefixes = map[domain.Mood]string{
	domain.MoodCalm:    "In a calm tone:\n",
	domain.MoodJolly:   "Let's enjoy this together! 😄\n",
	domain.MoodSerious: "Please listen carefully:\n",
}

// Transform applies the narration style and then wraps the result in the mood
// prefix. Unknown moods and styles leave the text untouched.
func Transform(text string, mood domain.Mood, style domain.NarrationStyle) string {
	return moodPrefixes[mood] + narrate(text, style)
}

func narrate(text string, style domain.NarrationStyle) string {
	switch style {
	case domain.NarrationShort:
		segments := strings.Split(text, sentenceSeparator)
		if len(segments) > shortSentenceLimit {
			segments = segments[:shortSentenceLimit]
		}
		return strings.Join(segments, sentenceSeparator) + "."
	case domain.NarrationBullet:
		lines := lo.Map(strings.Split(text, sentenceSeparator), func(segment string, _ int) string {
			return bulletMarker + strings.TrimSpace(segment)
		})
		return strings.Join(lines, "\n")
	case domain.NarrationDescriptive:
		return descriptivePreamble + text
	default:
		return text
	}
}

// ParseMood maps a selector value to a mood; anything unknown means no mood.
func ParseMood(value string) domain.Mood {
	mood := domain.Mood(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := moodPrefixes[mood]; ok {
		return mood
	}
	return domain.MoodNone
}

// ParseStyle maps a selector value to a narration style.
func ParseStyle(value string) domain.NarrationStyle {
	style := domain.NarrationStyle(strings.ToLower(strings.TrimSpace(value)))
	switch style {
	case domain.NarrationShort, domain.NarrationBullet, domain.NarrationDescriptive:
		return style
	default:
		return domain.NarrationNone
	}
}
