// Package chunker splits contract text into bounded, overlapping chunks.
package chunker

import (
	"strconv"
	"unicode"

	"github.com/google/uuid"

	"compliance/internal/domain"
)

// DefaultMaxChars is the default number of runes per chunk.
const DefaultMaxChars = 1500

// DefaultOverlapChars is the default number of runes shared by consecutive chunks.
const DefaultOverlapChars = 150

// separators lists boundary candidates by priority: paragraph, line, sentence, word.
// When no candidate fits, the chunk is cut at the rune limit.
var separators = [][]string{
	{"\n\n"},
	{"\n"},
	{". ", "? ", "! "},
	{" "},
}

var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("compliance/chunk"))

// Recursive splits text at the highest priority boundary that fits the budget.
type Recursive struct {
	maxChars int
	overlap  int
}

// Option configures the chunker.
type Option func(*Recursive)

// WithMaxChars sets the maximum chunk length in runes.
func WithMaxChars(n int) Option {
	return func(c *Recursive) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in runes.
func WithOverlap(n int) Option {
	return func(c *Recursive) {
		if n >= 0 {
			c.overlap = n
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Recursive {
	c := &Recursive{maxChars: DefaultMaxChars, overlap: DefaultOverlapChars}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.maxChars {
		c.overlap = c.maxChars / 4
	}
	return c
}

// MaxChars returns the chunk length bound.
func (c *Recursive) MaxChars() int { return c.maxChars }

// Overlap returns the configured overlap.
func (c *Recursive) Overlap() int { return c.overlap }

// Split cuts text into chunks tagged with source. Identical input always
// yields identical chunks, including IDs.
func (c *Recursive) Split(text, source string) []domain.Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	var chunks []domain.Chunk
	start := 0
	for {
		end := n
		if n-start > c.maxChars {
			end = c.cut(runes, start)
		}
		idx := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:     chunkID(source, idx),
			Source: source,
			Index:  idx,
			Start:  start,
			End:    end,
			Text:   string(runes[start:end]),
		})
		if end == n {
			break
		}
		start = c.nextStart(runes, end)
	}
	return chunks
}

// cut picks the end of the chunk starting at start. The chunk must be longer
// than the overlap so that the next chunk starts strictly later.
func (c *Recursive) cut(runes []rune, start int) int {
	limit := start + c.maxChars
	minEnd := start + c.overlap + 1
	for _, level := range separators {
		best := -1
		for _, sep := range level {
			if p := lastBoundary(runes, minEnd, limit, []rune(sep)); p > best {
				best = p
			}
		}
		if best > 0 {
			return best
		}
	}
	return limit
}

// nextStart backs up by the overlap and then moves forward to the first word
// start inside the overlap window, if any.
func (c *Recursive) nextStart(runes []rune, end int) int {
	if c.overlap == 0 {
		return end
	}
	next := end - c.overlap
	for i := next; i < end; i++ {
		if i > 0 && unicode.IsSpace(runes[i-1]) && !unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return next
}

// lastBoundary returns the largest p in [minEnd, limit] where runes[:p] ends
// with sep, or -1.
func lastBoundary(runes []rune, minEnd, limit int, sep []rune) int {
	for p := limit; p >= minEnd && p >= len(sep); p-- {
		match := true
		for i := range sep {
			if runes[p-len(sep)+i] != sep[i] {
				match = false
				break
			}
		}
		if match {
			return p
		}
	}
	return -1
}

func chunkID(source string, idx int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(source+":"+strconv.Itoa(idx))).String()
}
