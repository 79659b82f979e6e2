package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/complyline/kbengine/internal/core/domain"
	"github.com/complyline/kbengine/internal/core/ports/driven"
	"github.com/complyline/kbengine/internal/core/ports/driving"
	"github.com/complyline/kbengine/internal/logger"
)

// Ensure Answerer implements the interface.
var _ driving.AnswerService = (*Answerer)(nil)

// NoAnswerText is returned when retrieval finds nothing relevant. The model
// is never called on empty context.
const NoAnswerText = "No relevant information was found in the knowledge base for this question."

// snippetLength bounds the source excerpts attached to an answer.
const snippetLength = 200

const answerSystemPrompt = `You are a compliance knowledge assistant. Answer the question using only the provided context.
Cite the sources you used by their label, e.g. [Source 1].
If the context does not contain enough information to answer, say so plainly instead of guessing.`

// Answerer synthesises cited answers from retrieved chunks.
type Answerer struct {
	retriever driving.RetrievalService
	llm       driven.LLMService

	maxTokens   int
	temperature float64
}

// NewAnswerer creates an answer composer. The LLM service may be nil, in
// which case Ask fails with domain.ErrLLMUnavailable while search keeps
// working through the retriever.
func NewAnswerer(retriever driving.RetrievalService, llm driven.LLMService) *Answerer {
	return &Answerer{
		retriever:   retriever,
		llm:         llm,
		maxTokens:   1024,
		temperature: 0.2,
	}
}

// Ask retrieves the chunks most relevant to the question and asks the model
// for an answer grounded strictly in them.
func (a *Answerer) Ask(ctx context.Context, orgID, question string) (*domain.Answer, error) {
	if orgID == "" {
		return nil, fmt.Errorf("ask: %w: organisation id is required", domain.ErrInvalidInput)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("ask: %w: question is required", domain.ErrInvalidInput)
	}
	if a.llm == nil {
		return nil, fmt.Errorf("ask: %w", domain.ErrLLMUnavailable)
	}

	results, err := a.retriever.Search(ctx, orgID, question, domain.SearchOptions{Limit: DefaultTopK})
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}
	if len(results) == 0 {
		logger.Debug("ask %q: no matching chunks, skipping model call", question)
		return &domain.Answer{Text: NoAnswerText, Sources: []domain.AnswerSource{}}, nil
	}

	var contextBlock strings.Builder
	sources := make([]domain.AnswerSource, 0, len(results))
	for i, res := range results {
		label := res.Chunk.Meta.Title
		if label == "" {
			label = res.Chunk.RecordID
		}
		fmt.Fprintf(&contextBlock, "[Source %d: %s]\n%s\n\n", i+1, label, res.Chunk.Content)
		sources = append(sources, domain.AnswerSource{
			RecordID:   res.Chunk.RecordID,
			Title:      res.Chunk.Meta.Title,
			Similarity: res.Similarity,
			Snippet:    snippet(res.Chunk.Content),
		})
	}

	messages := []driven.ChatMessage{
		{Role: "system", Content: answerSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Context:\n\n%sQuestion: %s", contextBlock.String(), question)},
	}

	text, err := a.llm.Chat(ctx, messages, driven.ChatOptions{
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	return &domain.Answer{Text: text, Sources: sources}, nil
}

// snippet returns a short excerpt of chunk content for UI attribution.
func snippet(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) <= snippetLength {
		return content
	}
	return string(runes[:snippetLength]) + "..."
}
