package media

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"clipper/internal/services"
)

// ParseSRT reads a SubRip transcript into an ordered Transcript. HTML-style
// tags are stripped; cue indexes are ignored in favor of document order.
func ParseSRT(r io.Reader) (*Transcript, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var lines []Line
	var cue []string
	flush := func() error {
		if len(cue) == 0 {
			return nil
		}
		line, ok, err := parseCue(cue)
		if err != nil {
			return err
		}
		if ok {
			lines = append(lines, line)
		}
		cue = cue[:0]
		return nil
	}

	for scanner.Scan() {
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		cue = append(cue, text)
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "media", "parse srt", "read input", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return NewTranscript(lines)
}

// ParseSRTFile opens and parses a .srt file from disk.
func ParseSRTFile(path string) (*Transcript, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "media", "parse srt", "open file", err)
	}
	defer file.Close()
	return ParseSRT(file)
}

func parseCue(cue []string) (Line, bool, error) {
	// Optional numeric index on the first line.
	idx := 0
	if _, err := strconv.Atoi(strings.TrimSpace(cue[0])); err == nil {
		idx = 1
	}
	if idx >= len(cue) {
		return Line{}, false, nil
	}

	start, end, err := parseTimingLine(cue[idx])
	if err != nil {
		return Line{}, false, err
	}

	text := strings.TrimSpace(stripTags(strings.Join(cue[idx+1:], " ")))
	if text == "" {
		return Line{}, false, nil
	}
	return Line{Start: start, End: end, Text: text}, true, nil
}

func parseTimingLine(line string) (float64, float64, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, services.Wrap(services.ErrValidation, "media", "parse srt",
			fmt.Sprintf("malformed timing line %q", line), nil)
	}
	start, err := parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	end, err := parseTimestamp(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseTimestamp converts "HH:MM:SS,mmm" (comma or dot separator) to seconds.
func parseTimestamp(value string) (float64, error) {
	normalized := strings.Replace(value, ",", ".", 1)
	fields := strings.Split(normalized, ":")
	if len(fields) != 3 {
		return 0, services.Wrap(services.ErrValidation, "media", "parse srt",
			fmt.Sprintf("malformed timestamp %q", value), nil)
	}
	hours, err1 := strconv.Atoi(fields[0])
	minutes, err2 := strconv.Atoi(fields[1])
	seconds, err3 := strconv.ParseFloat(fields[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, services.Wrap(services.ErrValidation, "media", "parse srt",
			fmt.Sprintf("malformed timestamp %q", value), nil)
	}
	return float64(hours)*3600 + float64(minutes)*60 + seconds, nil
}

func stripTags(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	depth := 0
	for _, r := range text {
		switch {
		case r == '<':
			depth++
		case r == '>' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
