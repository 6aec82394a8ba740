package chunker

import (
	"strings"
	"unicode"
)

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// Chunker splits plain text into overlapping segments of roughly Size
// runes, cutting at natural boundaries when one exists: paragraph break
// first, then sentence end, then word boundary, and only then mid-word.
type Chunker struct {
	size    int
	overlap int
}

func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split returns the ordered chunk sequence for text. Empty or
// whitespace-only input yields no chunks.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	var chunks []string

	pos := 0
	for pos < len(runes) {
		end := pos + c.size
		if end >= len(runes) {
			if chunk := strings.TrimSpace(string(runes[pos:])); chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		cut := c.findBreak(runes, pos, end)
		chunk := strings.TrimSpace(string(runes[pos:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - c.overlap
		if next <= pos {
			next = pos + 1
		}
		pos = next
	}
	return chunks
}

// findBreak picks the cut position in (pos, end], searching backwards from
// end. A boundary in the front half of the window is worse than a hard cut,
// so only the back half is considered.
func (c *Chunker) findBreak(runes []rune, pos, end int) int {
	floor := pos + c.size/2

	if i := lastParagraphBreak(runes, floor, end); i > 0 {
		return i
	}
	if i := lastSentenceEnd(runes, floor, end); i > 0 {
		return i
	}
	for i := end; i > floor; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}

func lastParagraphBreak(runes []rune, floor, end int) int {
	for i := end; i > floor+1; i-- {
		if runes[i-1] == '\n' && runes[i-2] == '\n' {
			return i
		}
	}
	return 0
}

func lastSentenceEnd(runes []rune, floor, end int) int {
	for i := end; i > floor+1; i-- {
		r := runes[i-2]
		if (r == '.' || r == '!' || r == '?') && unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return 0
}
