// Package chunker splits raw document text into overlapping,
// sentence-aligned segments suitable for embedding.
package chunker

import "strings"

const (
	// DefaultSize is the target chunk length in characters.
	DefaultSize = 1500
	// DefaultOverlap is how far each chunk reaches back into its predecessor.
	DefaultOverlap = 200
)

// Chunker produces overlapping text chunks. The zero value is not usable;
// construct with New.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. Non-positive size or overlap fall back to the
// defaults; overlap is clamped below size so every chunk makes progress.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk splits text into an ordered sequence of chunks. Each chunk ends at
// the last sentence boundary ('.' or newline) at or before the size mark;
// when the window holds no boundary it hard-cuts at size. Every chunk after
// the first starts overlap characters before the previous cut point, so no
// content is lost at boundaries. Chunks are exact substrings of the input.
//
// Empty or whitespace-only text yields no chunks.
func (c *Chunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) <= c.size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}

		window := text[start:end]
		if cut := lastBoundary(window); cut > 0 {
			end = start + cut
		}
		chunks = append(chunks, text[start:end])

		next := end - c.overlap
		if next <= start {
			// Overlap would revisit the whole chunk; move on without it.
			next = end
		}
		start = next
	}
	return chunks
}

// lastBoundary returns the index just past the last sentence boundary in
// window, or 0 when there is none.
func lastBoundary(window string) int {
	period := strings.LastIndexByte(window, '.')
	newline := strings.LastIndexByte(window, '\n')
	cut := period
	if newline > cut {
		cut = newline
	}
	if cut < 0 {
		return 0
	}
	return cut + 1
}

// Size returns the configured chunk size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }
