package splitter

import (
	"context"

	"clipper/internal/services/llm"
)

type llmProposer struct {
	client *llm.Client
}

// NewLLMProposer adapts the chat-completions client into a BoundaryProposer.
func NewLLMProposer(client *llm.Client) BoundaryProposer {
	return llmProposer{client: client}
}

func (p llmProposer) ProposeBoundaries(ctx context.Context, transcriptText string, duration float64) ([]Proposal, error) {
	raw, err := p.client.ProposeBoundaries(ctx, transcriptText, duration)
	if err != nil {
		return nil, err
	}
	proposals := make([]Proposal, 0, len(raw))
	for _, proposal := range raw {
		proposals = append(proposals, Proposal{
			Timestamp: proposal.Timestamp,
			Rationale: proposal.Rationale,
		})
	}
	return proposals, nil
}
