// Package chunker splits long text into overlapping, size-bounded chunks
// along paragraph boundaries.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// charsPerToken approximates how many characters one model token covers.
const charsPerToken = 4

// DefaultChunkTokens is the default chunk budget in approximate tokens.
const DefaultChunkTokens = 800

// DefaultChunkSize is the default chunk budget in characters.
const DefaultChunkSize = DefaultChunkTokens * charsPerToken

// DefaultOverlap is the default number of trailing characters carried into
// the next chunk so matches near a boundary are not lost.
const DefaultOverlap = 400

// paragraphSep joins paragraphs inside a chunk.
const paragraphSep = "\n\n"

// Chunk is one emitted segment of the input text.
type Chunk struct {
	// Content is the chunk text: zero or more paragraphs joined by blank
	// lines, optionally prefixed by the overlap tail of the previous chunk.
	Content string

	// Start and End bound the span of input text the chunk derives from,
	// in bytes. For overlap-seeded chunks Start reaches back into the
	// previous chunk's span by the length of the carried tail.
	Start int
	End   int

	// Index is the zero-based emission position. Emission order equals
	// document order.
	Index int
}

// Splitter accumulates paragraphs into size-bounded chunks.
// It is a pure function of its input: same text and parameters always
// produce the same sequence of chunks.
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk budget in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap carried between adjacent chunks, in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a Splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Overlap must leave room for new content in every chunk.
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// ChunkSize returns the configured chunk budget in characters.
func (s *Splitter) ChunkSize() int {
	return s.chunkSize
}

// paragraph is a blank-line-delimited run of text with its input offsets.
type paragraph struct {
	text  string
	start int
	end   int
}

// Split breaks text into ordered chunks. Paragraphs accumulate into a
// buffer until the next paragraph would exceed the budget; the buffer is
// then emitted and the next one is seeded with the emitted chunk's trailing
// overlap. A single paragraph larger than the budget closes and emits the
// current buffer whole rather than being split further. Empty or
// whitespace-only input yields no chunks.
func (s *Splitter) Split(text string) []Chunk {
	paras := splitParagraphs(text)
	if len(paras) == 0 {
		return nil
	}

	var chunks []Chunk
	var buf strings.Builder
	bufStart := -1
	bufEnd := 0
	seeded := false // buffer currently holds only the carried overlap

	flush := func() {
		content := buf.String()
		chunks = append(chunks, Chunk{
			Content: content,
			Start:   bufStart,
			End:     bufEnd,
			Index:   len(chunks),
		})

		tail := tailRunes(content, s.overlap)
		buf.Reset()
		bufStart = bufEnd - len(tail)
		if tail != "" {
			buf.WriteString(tail)
			seeded = true
		} else {
			bufStart = -1
			seeded = false
		}
	}

	for _, p := range paras {
		wouldExceed := buf.Len() > 0 && buf.Len()+len(paragraphSep)+len(p.text) > s.chunkSize

		// Emit the running buffer before a paragraph that would overflow
		// it. A buffer holding only the carried overlap always absorbs the
		// next paragraph, and a paragraph that alone exceeds the budget is
		// appended and emitted whole below instead.
		if wouldExceed && !seeded && len(p.text) <= s.chunkSize {
			flush()
		}

		if buf.Len() > 0 {
			buf.WriteString(paragraphSep)
		}
		if bufStart < 0 {
			bufStart = p.start
		}
		buf.WriteString(p.text)
		bufEnd = p.end
		seeded = false

		if len(p.text) > s.chunkSize {
			// The paragraph alone exceeds the budget: emit the buffer
			// whole rather than splitting inside the paragraph.
			flush()
		}
	}

	// A trailing buffer that holds only the carried overlap is not a chunk.
	if buf.Len() > 0 && !seeded {
		flush()
	}

	return chunks
}

// splitParagraphs breaks text on blank-line boundaries, recording the byte
// offsets of each trimmed paragraph in the input.
func splitParagraphs(text string) []paragraph {
	var paras []paragraph

	offset := 0
	for _, block := range strings.Split(text, "\n\n") {
		trimmed := strings.TrimSpace(block)
		if trimmed != "" {
			lead := strings.Index(block, trimmed)
			start := offset + lead
			paras = append(paras, paragraph{
				text:  trimmed,
				start: start,
				end:   start + len(trimmed),
			})
		}
		offset += len(block) + len("\n\n")
	}

	return paras
}

// tailRunes returns the trailing portion of s of at most n bytes, stepped
// back to a rune boundary so multi-byte characters are never split.
func tailRunes(s string, n int) string {
	if n <= 0 || len(s) <= n {
		if n <= 0 {
			return ""
		}
		return s
	}
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return s[i:]
}
