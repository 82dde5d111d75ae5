package usecase

import (
	"strings"

	"github.com/samber/lo"

	"pdfnarrator/internal/domain"
	"pdfnarrator/internal/ports"
)

// resultBuffer keeps the recognition results of one listening session,
// indexed the way the recognizer numbers them.
type resultBuffer struct {
	results []domain.RecognitionResult
}

// apply stores the event's results and returns the text to display: every
// buffered transcript from the event's index onward. Events that would rewrite
// a finalized result arrived late and are dropped.
func (b *resultBuffer) apply(event domain.RecognitionEvent) (string, bool) {
	index := event.ResultIndex
	if index < 0 || len(event.Results) == 0 {
		return "", false
	}
	if index < len(b.results) && b.results[index].Final {
		return "", false
	}

	for index+len(event.Results) > len(b.results) {
		b.results = append(b.results, domain.RecognitionResult{})
	}
	for i, result := range event.Results {
		b.results[index+i] = result
	}

	return strings.Join(lo.Map(b.results[index:], func(r domain.RecognitionResult, _ int) string {
		return r.Transcript
	}), ""), true
}

func consumeRecognitionEvents(stream ports.StreamingSession, apply func(domain.RecognitionEvent)) {
	for event := range stream.Events() {
		apply(event)
	}
}
