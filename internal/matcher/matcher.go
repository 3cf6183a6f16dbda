package matcher

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"clipper/internal/logging"
	"clipper/internal/store"
)

// Candidate is one span proposed by the extraction agent for a segment's
// text. Offsets are 0-based character positions, end exclusive.
type Candidate struct {
	Label        string
	PartOfSpeech string
	SpanStart    int
	SpanEnd      int
	Definition   string
	Evidence     string
}

// Extractor proposes candidate vocabulary spans for one segment's text.
// Implementations are swappable; the production one is the LLM client.
type Extractor interface {
	Extract(ctx context.Context, segmentText string) ([]Candidate, error)
}

// Target parts of speech: nouns, verbs, adjectives, adverbs.
var allowedPartsOfSpeech = map[string]struct{}{
	"noun":      {},
	"verb":      {},
	"adjective": {},
	"adverb":    {},
}

// evidencePayload is what lands in the occurrence's evidence column.
type evidencePayload struct {
	SpanStart int    `json:"span_start"`
	SpanEnd   int    `json:"span_end"`
	Surface   string `json:"surface"`
	Context   string `json:"context,omitempty"`
}

// Matcher turns segment text into validated, deduplicated annotations ready
// for persistence.
type Matcher struct {
	extractor Extractor
	logger    *slog.Logger
}

// New constructs a matcher. A nil logger disables logging.
func New(extractor Extractor, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Matcher{
		extractor: extractor,
		logger:    logging.NewComponentLogger(logger, "matcher"),
	}
}

// Annotate runs extraction over every segment and returns one annotation per
// surviving candidate. Candidates that fail validation are skipped with a
// warning. Within one segment, only the first candidate for each
// (label, part of speech) pair is kept; the store suppresses cross-delivery
// duplicates via its unique constraints.
func (m *Matcher) Annotate(ctx context.Context, segments []store.SegmentInput) ([]store.AnnotationInput, error) {
	var annotations []store.AnnotationInput
	for index, segment := range segments {
		candidates, err := m.extractor.Extract(ctx, segment.Text)
		if err != nil {
			return nil, err
		}

		seen := make(map[string]struct{}, len(candidates))
		for _, candidate := range candidates {
			if !m.validate(candidate, segment.Text, index) {
				continue
			}
			key := candidate.Label + "\x00" + candidate.PartOfSpeech
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			annotations = append(annotations, store.AnnotationInput{
				SegmentIndex: index,
				Label:        candidate.Label,
				PartOfSpeech: candidate.PartOfSpeech,
				Definition:   candidate.Definition,
				Evidence:     encodeEvidence(candidate, segment.Text),
			})
		}
	}
	return annotations, nil
}

func (m *Matcher) validate(candidate Candidate, text string, segmentIndex int) bool {
	label := strings.TrimSpace(candidate.Label)
	if label == "" {
		m.logger.Warn("dropping candidate with empty label",
			logging.Int("segment", segmentIndex))
		return false
	}
	if _, ok := allowedPartsOfSpeech[candidate.PartOfSpeech]; !ok {
		m.logger.Warn("dropping candidate with unknown part of speech",
			logging.Int("segment", segmentIndex),
			logging.String("label", label),
			logging.String("part_of_speech", candidate.PartOfSpeech))
		return false
	}
	if candidate.SpanStart < 0 || candidate.SpanEnd <= candidate.SpanStart || candidate.SpanEnd > len(text) {
		m.logger.Warn("dropping candidate with out-of-range span",
			logging.Int("segment", segmentIndex),
			logging.String("label", label),
			logging.Int("span_start", candidate.SpanStart),
			logging.Int("span_end", candidate.SpanEnd))
		return false
	}
	return true
}

func encodeEvidence(candidate Candidate, text string) string {
	payload := evidencePayload{
		SpanStart: candidate.SpanStart,
		SpanEnd:   candidate.SpanEnd,
		Surface:   text[candidate.SpanStart:candidate.SpanEnd],
		Context:   strings.TrimSpace(candidate.Evidence),
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(encoded)
}
