package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyline/kbengine/internal/adapters/driven/storage/memory"
	"github.com/complyline/kbengine/internal/core/domain"
	"github.com/complyline/kbengine/internal/core/ports/driven"
)

// recordingLLM captures chat calls and plays back a canned reply.
type recordingLLM struct {
	calls [][]driven.ChatMessage
	reply string
	err   error
}

var _ driven.LLMService = (*recordingLLM)(nil)

func (l *recordingLLM) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	l.calls = append(l.calls, messages)
	if l.err != nil {
		return "", l.err
	}
	return l.reply, nil
}

func (l *recordingLLM) ModelName() string { return "fake-llm" }
func (l *recordingLLM) Ping(_ context.Context) error { return nil }
func (l *recordingLLM) Close() error { return nil }

func TestAsk_EmptyContextSkipsModel(t *testing.T) {
	llm := &recordingLLM{reply: "should never be used"}
	retriever := NewRetriever(&fakeEmbedder{}, memory.NewVectorStore())
	answerer := NewAnswerer(retriever, llm)

	answer, err := answerer.Ask(context.Background(), "org-1", "what is our retention policy?")
	require.NoError(t, err)

	assert.Equal(t, NoAnswerText, answer.Text)
	assert.Empty(t, answer.Sources)
	// No chunks matched, so the model must not be called.
	assert.Empty(t, llm.calls)
}

func TestAsk_GroundsAnswerInRetrievedChunks(t *testing.T) {
	store := memory.NewVectorStore()
	llm := &recordingLLM{reply: "Backups are retained for 90 days [Source 1]."}
	answerer := NewAnswerer(NewRetriever(&fakeEmbedder{}, store), llm)

	question := "how long are backups retained?"
	seedChunk(t, store, "backup-policy", embedText(question))

	answer, err := answerer.Ask(context.Background(), "org-1", question)
	require.NoError(t, err)

	assert.Equal(t, "Backups are retained for 90 days [Source 1].", answer.Text)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "backup-policy", answer.Sources[0].RecordID)
	assert.Equal(t, "Title of backup-policy", answer.Sources[0].Title)
	assert.NotEmpty(t, answer.Sources[0].Snippet)

	// One call: a system instruction plus the labelled context and question.
	require.Len(t, llm.calls, 1)
	messages := llm.calls[0]
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, "user", messages[1].Role)
	assert.Contains(t, messages[1].Content, "[Source 1: Title of backup-policy]")
	assert.Contains(t, messages[1].Content, question)
}

func TestAsk_NoLLM(t *testing.T) {
	answerer := NewAnswerer(NewRetriever(&fakeEmbedder{}, memory.NewVectorStore()), nil)

	_, err := answerer.Ask(context.Background(), "org-1", "anything")
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestAsk_Validation(t *testing.T) {
	answerer := NewAnswerer(NewRetriever(&fakeEmbedder{}, memory.NewVectorStore()), &recordingLLM{})

	_, err := answerer.Ask(context.Background(), "", "question")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = answerer.Ask(context.Background(), "org-1", "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSnippet_TrimsLongContent(t *testing.T) {
	long := strings.Repeat("word ", 100)
	s := snippet(long)

	assert.LessOrEqual(t, len([]rune(s)), snippetLength+3)
	assert.True(t, strings.HasSuffix(s, "..."))

	short := "short content"
	assert.Equal(t, short, snippet(short))
}
