package chunker

import (
	"strings"
	"unicode"
)

const (
	// DefaultChunkSize is the default number of characters per chunk.
	DefaultChunkSize = 800
	// DefaultOverlap is the default number of characters shared by consecutive chunks.
	DefaultOverlap = 120
	// boundaryFraction is how far into the window a boundary must sit to be used.
	boundaryFraction = 0.8
)

// WindowChunker splits text into fixed-size character windows with overlap,
// preferring to cut after a sentence terminator or at whitespace near the end
// of each window.
type WindowChunker struct {
	size    int
	overlap int
}

// NewWindowChunker creates a chunker. Non-positive size falls back to the
// default; an overlap that would stall the window is reduced to size/4.
func NewWindowChunker(size, overlap int) *WindowChunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}
	return &WindowChunker{size: size, overlap: overlap}
}

// Size returns the configured window size.
func (c *WindowChunker) Size() int { return c.size }

// Overlap returns the configured overlap.
func (c *WindowChunker) Overlap() int { return c.overlap }

// Split returns the passages of text in order. Lengths are measured in runes.
func (c *WindowChunker) Split(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n <= c.size {
		return []string{text}
	}

	minBoundary := int(float64(c.size) * boundaryFraction)
	chunks := make([]string, 0, n/(c.size-c.overlap)+1)
	start := 0
	for start < n {
		end := start + c.size
		if end < n {
			if cut := lastBoundary(runes[start:end], minBoundary); cut > 0 {
				end = start + cut
			}
		}

		piece := strings.TrimSpace(string(runes[start:min(end, n)]))
		if piece != "" {
			chunks = append(chunks, piece)
		}

		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// lastBoundary returns the cut offset within window: just after the last
// sentence terminator past minOffset, else at the last whitespace past
// minOffset, else 0 when neither exists.
func lastBoundary(window []rune, minOffset int) int {
	for i := len(window) - 1; i > minOffset; i-- {
		if isTerminator(window[i]) {
			return i + 1
		}
	}
	for i := len(window) - 1; i > minOffset; i-- {
		if unicode.IsSpace(window[i]) {
			return i
		}
	}
	return 0
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
