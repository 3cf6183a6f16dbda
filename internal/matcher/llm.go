package matcher

import (
	"context"

	"clipper/internal/services/llm"
)

type llmExtractor struct {
	client *llm.Client
}

// NewLLMExtractor adapts the chat-completions client into an Extractor.
func NewLLMExtractor(client *llm.Client) Extractor {
	return llmExtractor{client: client}
}

func (e llmExtractor) Extract(ctx context.Context, segmentText string) ([]Candidate, error) {
	spans, err := e.client.ExtractSpans(ctx, segmentText)
	if err != nil {
		return nil, err
	}
	candidates := make([]Candidate, 0, len(spans))
	for _, span := range spans {
		candidates = append(candidates, Candidate{
			Label:        span.Label,
			PartOfSpeech: span.PartOfSpeech,
			SpanStart:    span.SpanStart,
			SpanEnd:      span.SpanEnd,
			Definition:   span.Definition,
			Evidence:     span.Evidence,
		})
	}
	return candidates, nil
}
