package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/complyline/kbengine/internal/core/domain"
	"github.com/complyline/kbengine/internal/core/ports/driven"
	"github.com/complyline/kbengine/internal/core/ports/driving"
	"github.com/complyline/kbengine/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.RetrievalService = (*Retriever)(nil)

// DefaultTopK is the default number of search results.
const DefaultTopK = 8

// Retriever serves semantic search over indexed chunks.
type Retriever struct {
	embedder driven.EmbeddingService
	vectors  driven.VectorStore
}

// NewRetriever creates a retriever over the given collaborators.
func NewRetriever(embedder driven.EmbeddingService, vectors driven.VectorStore) *Retriever {
	return &Retriever{embedder: embedder, vectors: vectors}
}

// Search embeds the query string and returns the nearest chunks.
// A blank query returns no results without touching the embedder.
func (r *Retriever) Search(ctx context.Context, orgID, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	if orgID == "" {
		return nil, fmt.Errorf("search: %w: organisation id is required", domain.ErrInvalidInput)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchResult{}, nil
	}
	if r.embedder == nil {
		return nil, fmt.Errorf("search: %w", domain.ErrEmbeddingUnavailable)
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultTopK
	}

	// Single-item batch keeps the query on the same code path as indexing.
	vectors, err := r.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := r.vectors.Search(ctx, orgID, vectors[0], opts)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}

	logger.Debug("search %q: %d results", query, len(results))
	return results, nil
}

// FindSimilar returns the chunks nearest to a record's first stored chunk,
// excluding the record itself. A record with no indexed chunk 0 yields an
// empty result rather than an error.
func (r *Retriever) FindSimilar(ctx context.Context, orgID, recordID string, limit int) ([]domain.SearchResult, error) {
	if orgID == "" || recordID == "" {
		return nil, fmt.Errorf("find similar: %w: organisation and record ids are required", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultTopK
	}

	chunk, err := r.vectors.RecordChunk(ctx, orgID, recordID, 0)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []domain.SearchResult{}, nil
		}
		return nil, fmt.Errorf("reading record chunk: %w", err)
	}
	if len(chunk.Embedding) == 0 {
		return []domain.SearchResult{}, nil
	}

	results, err := r.vectors.Search(ctx, orgID, chunk.Embedding, domain.SearchOptions{
		Limit:           limit,
		ExcludeRecordID: recordID,
	})
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	return results, nil
}
