package driven

import (
	"context"
	"time"

	"github.com/complyline/kbengine/internal/core/domain"
)

// VectorStore persists chunks and serves cosine nearest-neighbour queries.
// Backed by SQLite with a registered vector-distance SQL function.
type VectorStore interface {
	// UpsertChunks inserts or replaces chunks keyed by
	// (org, record id, chunk index). Last write wins, so concurrent or
	// repeated runs converge rather than duplicate.
	UpsertChunks(ctx context.Context, chunks []domain.Chunk) error

	// DeleteRecordChunks removes every chunk for a record. Called before a
	// changed record is re-embedded.
	DeleteRecordChunks(ctx context.Context, orgID, recordID string) error

	// MarkIndexed records that a source record has been processed,
	// capturing its freshness watermark. Records that produced zero
	// chunks are still marked.
	MarkIndexed(ctx context.Context, rec domain.IndexedRecord) error

	// Search returns up to opts.Limit chunks nearest to the query vector,
	// restricted to the organisation and the option filters, ordered by
	// descending similarity with ties broken by ascending chunk id.
	// Chunks without an embedding are never returned.
	Search(ctx context.Context, orgID string, query []float32, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// RecordChunk returns the chunk at the given index of a record, or
	// domain.ErrNotFound. Used by find-similar to read chunk 0's stored
	// embedding.
	RecordChunk(ctx context.Context, orgID, recordID string, index int) (*domain.Chunk, error)

	// MaxWatermark returns the newest freshness watermark stored for the
	// organisation and collection, or the zero time if nothing is indexed
	// yet.
	MaxWatermark(ctx context.Context, orgID string, kind domain.RecordKind) (time.Time, error)

	// Stats returns the indexed record count and total chunk count for an
	// organisation.
	Stats(ctx context.Context, orgID string) (indexedRecords, totalChunks int, err error)
}
