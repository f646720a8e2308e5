package textchunk

import (
	"fmt"
	"iter"
)

// Splitter produces overlapping chunks of text for per-chunk summarization.
// Chunk i starts at (end of chunk i-1 - overlap), so consecutive chunks share
// exactly overlap characters and concatenating the distinct regions
// reconstructs the input.
type Splitter struct {
	size    int
	overlap int
}

// New validates the chunking parameters and returns a Splitter.
// overlap must be strictly smaller than size or the sequence would never
// advance.
func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("textchunk: chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("textchunk: overlap must not be negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("textchunk: overlap %d must be smaller than chunk size %d", overlap, size)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Size returns the configured chunk size in characters.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the configured overlap in characters.
func (s *Splitter) Overlap() int { return s.overlap }

// Chunks returns a lazy, restartable sequence over the chunks of text.
// Offsets are measured in characters, not bytes. The final chunk may be
// shorter than the configured size; an empty input yields no chunks.
func (s *Splitter) Chunks(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		runes := []rune(text)
		total := len(runes)
		if total == 0 {
			return
		}
		start := 0
		for {
			end := start + s.size
			if end > total {
				end = total
			}
			if !yield(string(runes[start:end])) {
				return
			}
			if end == total {
				return
			}
			start = end - s.overlap
		}
	}
}

// Split eagerly collects the chunk sequence into a slice.
func (s *Splitter) Split(text string) []string {
	var chunks []string
	for chunk := range s.Chunks(text) {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// Count returns the number of chunks Split would produce without
// materializing them.
func (s *Splitter) Count(text string) int {
	n := 0
	for range s.Chunks(text) {
		n++
	}
	return n
}
