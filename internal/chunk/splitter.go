// Package chunk splits normalized text into overlapping chunks suitable for
// embedding. Sizes and overlap are measured in characters (runes).
package chunk

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultSize is the maximum chunk length in characters.
	DefaultSize = 400
	// DefaultOverlap is the number of characters shared between neighbors.
	DefaultOverlap = 40
	// MinChunkLen is the minimum surviving chunk length. Shorter chunks are
	// degenerate and never reach the embedder.
	MinChunkLen = 10
)

var plainSeparators = []string{"\n\n", "\n", " ", ""}

// Markdown splitting prefers structural boundaries (headings, fences,
// horizontal rules) before falling back to plain separators.
var markdownSeparators = []string{
	"\n# ", "\n## ", "\n### ", "\n#### ", "\n##### ", "\n###### ",
	"\n```\n",
	"\n\n***\n\n", "\n\n---\n\n", "\n\n___\n\n",
	"\n\n", "\n", " ", "",
}

// Splitter recursively splits text on an ordered list of separators and
// merges the pieces back into chunks of at most size characters with the
// configured overlap between consecutive chunks.
type Splitter struct {
	size       int
	overlap    int
	separators []string
}

// NewPlain returns a splitter for unstructured text.
func NewPlain() *Splitter {
	return &Splitter{size: DefaultSize, overlap: DefaultOverlap, separators: plainSeparators}
}

// NewMarkdown returns a markdown-aware splitter.
func NewMarkdown() *Splitter {
	return &Splitter{size: DefaultSize, overlap: DefaultOverlap, separators: markdownSeparators}
}

// Split chunks text and drops degenerate pieces shorter than MinChunkLen.
// Empty input yields an empty sequence.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var out []string
	for _, c := range s.split(text, s.separators) {
		if utf8.RuneCountInString(c) >= MinChunkLen {
			out = append(out, c)
		}
	}
	return out
}

func (s *Splitter) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var rest []string
	for i, candidate := range separators {
		if candidate == "" {
			sep = ""
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	var final []string
	var good []string
	for _, piece := range splitKeepSeparator(text, sep) {
		if utf8.RuneCountInString(piece) < s.size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good, sep)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good, sep)...)
	}
	return final
}

// merge joins small pieces into chunks up to size characters, carrying the
// trailing pieces (up to overlap characters) into the next chunk.
func (s *Splitter) merge(pieces []string, sep string) []string {
	sepLen := utf8.RuneCountInString(sep)
	var chunks []string
	var current []string
	total := 0

	emit := func() {
		joined := strings.TrimSpace(strings.Join(current, sep))
		if joined != "" {
			chunks = append(chunks, joined)
		}
	}

	for _, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)
		joinLen := 0
		if len(current) > 0 {
			joinLen = sepLen
		}
		if total+pieceLen+joinLen > s.size && len(current) > 0 {
			emit()
			// Drop from the front until the retained tail fits the overlap
			// and leaves room for the incoming piece.
			for total > s.overlap || (total+pieceLen+joinLen > s.size && total > 0) {
				head := utf8.RuneCountInString(current[0])
				total -= head
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
				if len(current) == 0 {
					break
				}
			}
		}
		if len(current) > 0 {
			total += sepLen
		}
		current = append(current, piece)
		total += pieceLen
	}
	if len(current) > 0 {
		emit()
	}
	return chunks
}

// splitKeepSeparator splits text on sep, keeping the separator attached to
// the start of the following piece so no characters are lost. An empty
// separator splits into individual runes.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, part := range parts {
		if i > 0 {
			part = sep + part
		}
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
