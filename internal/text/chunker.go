package text

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidOverlap = errors.New("overlap must be smaller than chunk size")

// Boundary separators in order of preference: paragraph, line, sentence, word.
var separators = []string{"\n\n", "\n", ". ", " "}

// SplitText splits text into chunks of at most size characters. Cut points
// prefer paragraph boundaries, then line, sentence and word boundaries, and
// consecutive chunks share up to overlap characters from the previous tail.
// The function is pure: identical input and parameters always yield identical
// chunk boundaries, which downstream id hashing depends on.
// Text shorter than size yields exactly one chunk.
func SplitText(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidOverlap, size, overlap)
	}

	text = strings.TrimSpace(text)
	if len(text) <= size {
		return []string{text}, nil
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			if tail := strings.TrimSpace(text[start:]); tail != "" {
				chunks = append(chunks, tail)
			}
			break
		}

		cut := cutPoint(text, start, end)
		if chunk := strings.TrimSpace(text[start:cut]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - overlap
		if next <= start {
			// Overlap would stall the scan; advance past the cut instead.
			next = cut
		}
		start = next
	}

	return chunks, nil
}

// cutPoint finds the furthest boundary within (start, end]. Falls back to a
// hard cut at end when the window contains no separator.
func cutPoint(text string, start, end int) int {
	window := text[start:end]
	for _, sep := range separators {
		if i := strings.LastIndex(window, sep); i > 0 {
			return start + i + len(sep)
		}
	}
	return end
}
