// Package chunker splits document text into overlapping, bounded-size
// segments for embedding.
package chunker

import (
	"errors"
	"fmt"
	"iter"
	"unicode"
)

// Default chunk parameters used when a caller does not configure its own.
const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// ErrInvalidParams is returned by New when overlap is not in (0, size).
var ErrInvalidParams = errors.New("chunker: overlap must be positive and smaller than size")

// separators are tried in order; the first one found in the back half of
// the window determines where a chunk ends.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune("? "),
	[]rune("! "),
	[]rune(" "),
}

// Chunk is a contiguous slice of the source text. Start and End are rune
// offsets into the source; Text is exactly the runes in [Start, End).
type Chunk struct {
	Index int
	Start int
	End   int
	Text  string
}

// Len returns the chunk length in characters.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// Splitter produces chunks of at most Size characters with roughly Overlap
// characters shared between neighbours.
type Splitter struct {
	size    int
	overlap int
}

// New returns a Splitter for the given size and overlap.
func New(size, overlap int) (*Splitter, error) {
	if overlap <= 0 || overlap >= size {
		return nil, fmt.Errorf("%w (size=%d, overlap=%d)", ErrInvalidParams, size, overlap)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Size returns the maximum chunk length.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the target overlap between consecutive chunks.
func (s *Splitter) Overlap() int { return s.overlap }

// Chunks returns a lazy sequence of chunks over content. The sequence can
// be ranged over any number of times and always yields the same chunks.
func (s *Splitter) Chunks(content string) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		r := []rune(content)
		n := len(r)

		if isBlank(r) {
			return
		}

		start := 0
		for idx := 0; ; idx++ {
			if n-start <= s.size {
				yield(Chunk{Index: idx, Start: start, End: n, Text: string(r[start:n])})
				return
			}

			end := s.cutPoint(r, start)
			if !yield(Chunk{Index: idx, Start: start, End: end, Text: string(r[start:end])}) {
				return
			}
			start = s.nextStart(r, start, end)
		}
	}
}

// Split collects all chunk texts for content.
func (s *Splitter) Split(content string) []string {
	var out []string
	for c := range s.Chunks(content) {
		out = append(out, c.Text)
	}
	return out
}

// Collect returns all chunks for content.
func (s *Splitter) Collect(content string) []Chunk {
	var out []Chunk
	for c := range s.Chunks(content) {
		out = append(out, c)
	}
	return out
}

// cutPoint returns the exclusive end of the chunk beginning at start. The
// end lands just after a separator when one exists past the window midpoint,
// otherwise it is a hard cut at start+size.
func (s *Splitter) cutPoint(r []rune, start int) int {
	limit := start + s.size
	lo := start + s.size/2
	for _, sep := range separators {
		for p := limit - len(sep); p >= start && p+len(sep) > lo; p-- {
			if hasPrefixAt(r, p, sep) {
				return p + len(sep)
			}
		}
	}
	return limit
}

// nextStart backs off overlap characters from end and then moves forward
// to the first word start inside the overlap region, if any.
func (s *Splitter) nextStart(r []rune, start, end int) int {
	next := end - s.overlap
	if next <= start {
		next = start + 1
	}
	for i := next; i < end; i++ {
		if unicode.IsSpace(r[i-1]) && !unicode.IsSpace(r[i]) {
			return i
		}
	}
	return next
}

func isBlank(r []rune) bool {
	for _, c := range r {
		if !unicode.IsSpace(c) {
			return false
		}
	}
	return true
}

func hasPrefixAt(r []rune, p int, sep []rune) bool {
	if p+len(sep) > len(r) {
		return false
	}
	for i, c := range sep {
		if r[p+i] != c {
			return false
		}
	}
	return true
}

// Reassemble rebuilds the source text from chunks produced by Chunks by
// appending each chunk past the previous chunk's end.
func Reassemble(chunks []Chunk) string {
	var out []rune
	prevEnd := -1
	for _, c := range chunks {
		r := []rune(c.Text)
		if prevEnd < 0 {
			out = append(out, r...)
		} else if prevEnd > c.Start {
			out = append(out, r[prevEnd-c.Start:]...)
		} else {
			out = append(out, r...)
		}
		prevEnd = c.End
	}
	return string(out)
}
