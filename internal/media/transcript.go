package media

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"clipper/internal/services"
)

// Line is one timestamped utterance in a transcript. Lines are the atomic
// unit of timing: scene boundaries only ever fall on line boundaries.
type Line struct {
	Start float64
	End   float64
	Text  string
}

// Transcript is an ordered sequence of lines with monotonically
// non-decreasing start times. It is immutable once loaded.
type Transcript struct {
	lines []Line
}

// NewTranscript validates and wraps an ordered sequence of lines.
func NewTranscript(lines []Line) (*Transcript, error) {
	if len(lines) == 0 {
		return nil, services.Wrap(services.ErrValidation, "media", "transcript", "no lines", nil)
	}
	prev := -1.0
	for i, line := range lines {
		if line.End < line.Start {
			return nil, services.Wrap(services.ErrValidation, "media", "transcript",
				fmt.Sprintf("line %d ends before it starts (%.3f < %.3f)", i, line.End, line.Start), nil)
		}
		if line.Start < prev {
			return nil, services.Wrap(services.ErrValidation, "media", "transcript",
				fmt.Sprintf("line %d start %.3f precedes line %d start %.3f", i, line.Start, i-1, prev), nil)
		}
		prev = line.Start
	}
	cp := make([]Line, len(lines))
	copy(cp, lines)
	return &Transcript{lines: cp}, nil
}

// Lines returns a copy of the underlying lines.
func (t *Transcript) Lines() []Line {
	cp := make([]Line, len(t.lines))
	copy(cp, t.lines)
	return cp
}

// Len returns the number of lines.
func (t *Transcript) Len() int {
	return len(t.lines)
}

// Boundaries returns the sorted set of timestamps at which a cut may legally
// fall: every line start and end, deduplicated.
func (t *Transcript) Boundaries() []float64 {
	seen := make(map[float64]struct{}, len(t.lines)*2)
	out := make([]float64, 0, len(t.lines)*2)
	for _, line := range t.lines {
		for _, ts := range [2]float64{line.Start, line.End} {
			if _, ok := seen[ts]; ok {
				continue
			}
			seen[ts] = struct{}{}
			out = append(out, ts)
		}
	}
	// Line order already sorts starts; ends can interleave, so sort anyway.
	sortFloats(out)
	return out
}

// TextBetween concatenates the text of all lines fully inside [start, end).
func (t *Transcript) TextBetween(start, end float64) string {
	var parts []string
	for _, line := range t.lines {
		if line.Start >= start && line.End <= end {
			if trimmed := strings.TrimSpace(line.Text); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
	}
	return strings.Join(parts, " ")
}

func sortFloats(values []float64) {
	for i := 1; i < len(values); i++ {
		for j := i; j > 0 && values[j] < values[j-1]; j-- {
			values[j], values[j-1] = values[j-1], values[j]
		}
	}
}

var titleCaser = cases.Title(language.English)

// InferTitle derives a human-readable title from a storage object key, e.g.
// "clips/breakfast_scene_03.mp4" becomes "Breakfast Scene 03".
func InferTitle(objectKey string) string {
	base := objectKey
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndexByte(base, '.'); idx > 0 {
		base = base[:idx]
	}
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return "Untitled"
	}
	return titleCaser.String(base)
}
