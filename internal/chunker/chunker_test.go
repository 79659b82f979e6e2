package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_EmptyInput(t *testing.T) {
	s := New()

	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split("   \n\n  \t\n\n"))
}

func TestSplit_SingleSmallParagraph(t *testing.T) {
	s := New()

	chunks := s.Split("hello world")

	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, len("hello world"), chunks[0].End)
}

func TestSplit_AccumulatesParagraphsWithinBudget(t *testing.T) {
	s := New(WithChunkSize(100), WithOverlap(20))

	text := "first paragraph\n\nsecond paragraph\n\nthird paragraph"
	chunks := s.Split(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, "first paragraph\n\nsecond paragraph\n\nthird paragraph", chunks[0].Content)
}

func TestSplit_EmitsOnBudgetOverflow(t *testing.T) {
	s := New(WithChunkSize(100), WithOverlap(20))

	p1 := strings.Repeat("a", 60)
	p2 := strings.Repeat("b", 60)
	chunks := s.Split(p1 + "\n\n" + p2)

	require.Len(t, chunks, 2)
	assert.Equal(t, p1, chunks[0].Content)
	// Second chunk is seeded with the first chunk's trailing overlap.
	assert.Equal(t, strings.Repeat("a", 20)+"\n\n"+p2, chunks[1].Content)
	assert.Equal(t, 1, chunks[1].Index)
}

func TestSplit_OversizedParagraphEmittedWhole(t *testing.T) {
	s := New(WithChunkSize(100), WithOverlap(20))

	huge := strings.Repeat("x", 250)
	chunks := s.Split("intro\n\n" + huge + "\n\n" + "outro")

	require.Len(t, chunks, 2)
	// The oversized paragraph is not split further: it closes the running
	// buffer and is emitted together with it.
	assert.Equal(t, "intro\n\n"+huge, chunks[0].Content)
	assert.Equal(t, strings.Repeat("x", 20)+"\n\n"+"outro", chunks[1].Content)
}

// Worked example: paragraphs of 500/4000/500 characters with a
// 3200-character budget produce exactly two chunks, the second beginning
// with the overlap tail of the first.
func TestSplit_ThreeParagraphExample(t *testing.T) {
	s := New(WithChunkSize(3200), WithOverlap(400))

	p1 := strings.Repeat("a", 500)
	p2 := strings.Repeat("b", 4000)
	p3 := strings.Repeat("c", 500)
	chunks := s.Split(p1 + "\n\n" + p2 + "\n\n" + p3)

	require.Len(t, chunks, 2)
	assert.Equal(t, p1+"\n\n"+p2, chunks[0].Content)
	assert.True(t, strings.HasPrefix(chunks[1].Content, strings.Repeat("b", 400)))
	assert.True(t, strings.HasSuffix(chunks[1].Content, p3))
}

func TestSplit_Deterministic(t *testing.T) {
	s := New(WithChunkSize(80), WithOverlap(16))

	text := strings.Repeat("alpha beta gamma\n\n", 30)
	first := s.Split(text)
	second := s.Split(text)

	assert.Equal(t, first, second)
}

func TestSplit_OrderPreserved(t *testing.T) {
	s := New(WithChunkSize(30), WithOverlap(10))

	paras := []string{"one 11111", "two 22222", "three 33333", "four 44444", "five 55555"}
	chunks := s.Split(strings.Join(paras, "\n\n"))

	require.NotEmpty(t, chunks)

	// Indices are contiguous from zero and paragraph order survives:
	// stripping each chunk's overlap prefix and re-joining reconstructs
	// the input paragraph sequence.
	var rebuilt []string
	prev := ""
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		content := c.Content
		if i > 0 {
			tail := tailRunes(prev, 10)
			content = strings.TrimPrefix(content, tail+"\n\n")
		}
		rebuilt = append(rebuilt, strings.Split(content, "\n\n")...)
		prev = c.Content
	}
	assert.Equal(t, paras, rebuilt)
}

func TestSplit_OffsetsCoverSource(t *testing.T) {
	s := New(WithChunkSize(60), WithOverlap(10))

	text := "aaaa aaaa aaaa\n\nbbbb bbbb bbbb\n\ncccc cccc cccc\n\ndddd dddd dddd"
	chunks := s.Split(text)

	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.GreaterOrEqual(t, c.Start, 0)
		assert.LessOrEqual(t, c.End, len(text))
		assert.Less(t, c.Start, c.End)
		if i > 0 {
			// Overlap reaches back into the previous chunk's span.
			assert.Less(t, c.Start, chunks[i-1].End)
			assert.Greater(t, c.End, chunks[i-1].End)
		}
	}
}

func TestSplit_UTF8SafeOverlap(t *testing.T) {
	s := New(WithChunkSize(40), WithOverlap(7))

	text := strings.Repeat("héllö wörld ", 3) + "\n\n" + strings.Repeat("ünïcode ", 4)
	chunks := s.Split(text)

	for _, c := range chunks {
		assert.True(t, strings.ToValidUTF8(c.Content, "?") == c.Content,
			"chunk content must remain valid UTF-8")
	}
}

func TestNew_OverlapClampedBelowChunkSize(t *testing.T) {
	s := New(WithChunkSize(100), WithOverlap(100))

	assert.Equal(t, 25, s.overlap)
	assert.Equal(t, 100, s.ChunkSize())
}
