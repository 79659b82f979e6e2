package driving

import (
	"context"

	"github.com/complyline/kbengine/internal/core/domain"
)

// RetrievalService serves nearest-neighbour queries over indexed chunks.
type RetrievalService interface {
	// Search embeds the query string and returns the top matching chunks
	// for the organisation, ordered by descending similarity.
	Search(ctx context.Context, orgID, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// FindSimilar returns the chunks nearest to a record's first stored
	// chunk, excluding the record itself. Returns an empty slice if the
	// record has no indexed chunk 0.
	FindSimilar(ctx context.Context, orgID, recordID string, limit int) ([]domain.SearchResult, error)
}

// AnswerService synthesises cited answers from retrieved chunks.
type AnswerService interface {
	// Ask retrieves the chunks most relevant to the question and asks the
	// chat-completion provider for an answer grounded strictly in them.
	// When nothing matches, a fixed "no relevant information" answer is
	// returned without calling the provider.
	Ask(ctx context.Context, orgID, question string) (*domain.Answer, error)
}
