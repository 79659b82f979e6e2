package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/complyline/kbengine/internal/core/domain"
	"github.com/complyline/kbengine/internal/core/ports/driven"
)

// VectorStore is an in-memory implementation of driven.VectorStore.
// Search is a brute-force cosine scan with the same ordering contract as
// the SQLite adapter: descending similarity, ties broken by ascending id.
type VectorStore struct {
	mu      sync.RWMutex
	chunks  map[string]domain.Chunk        // keyed by chunk id
	indexed map[string]domain.IndexedRecord // keyed by org/record
}

var _ driven.VectorStore = (*VectorStore)(nil)

// NewVectorStore creates an empty in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		chunks:  make(map[string]domain.Chunk),
		indexed: make(map[string]domain.IndexedRecord),
	}
}

func recordKey(orgID, recordID string) string {
	return orgID + "/" + recordID
}

// UpsertChunks inserts or replaces chunks keyed by (org, record, index).
func (s *VectorStore) UpsertChunks(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		if chunk.ID == "" {
			chunk.ID = uuid.New().String()
		}
		// Replace an existing chunk at the same (org, record, index).
		for id, existing := range s.chunks {
			if existing.OrgID == chunk.OrgID && existing.RecordID == chunk.RecordID &&
				existing.Index == chunk.Index {
				delete(s.chunks, id)
				break
			}
		}
		s.chunks[chunk.ID] = chunk
	}
	return nil
}

// DeleteRecordChunks removes every chunk for a record.
func (s *VectorStore) DeleteRecordChunks(_ context.Context, orgID, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, chunk := range s.chunks {
		if chunk.OrgID == orgID && chunk.RecordID == recordID {
			delete(s.chunks, id)
		}
	}
	return nil
}

// MarkIndexed records that a source record has been processed.
func (s *VectorStore) MarkIndexed(_ context.Context, rec domain.IndexedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.IndexedAt.IsZero() {
		rec.IndexedAt = time.Now()
	}
	s.indexed[recordKey(rec.OrgID, rec.RecordID)] = rec
	return nil
}

// Search returns the chunks nearest to the query vector.
func (s *VectorStore) Search(_ context.Context, orgID string, query []float32, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("search: %w: empty query vector", domain.ErrInvalidInput)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []domain.SearchResult
	for _, chunk := range s.chunks {
		if chunk.OrgID != orgID || len(chunk.Embedding) == 0 {
			continue
		}
		if !matchesOptions(chunk, opts) {
			continue
		}
		sim, err := cosine(query, chunk.Embedding)
		if err != nil {
			return nil, err
		}
		results = append(results, domain.SearchResult{Chunk: chunk, Similarity: sim})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func matchesOptions(chunk domain.Chunk, opts domain.SearchOptions) bool {
	if opts.Kind != "" && chunk.Meta.Kind != opts.Kind {
		return false
	}
	if opts.Status != "" && chunk.Meta.Status != opts.Status {
		return false
	}
	if opts.Category != "" && chunk.Meta.Category != opts.Category {
		return false
	}
	if opts.Team != "" && chunk.Meta.Team != opts.Team {
		return false
	}
	if opts.ExcludeRecordID != "" && chunk.RecordID == opts.ExcludeRecordID {
		return false
	}
	return true
}

// RecordChunk returns the chunk at the given index of a record.
func (s *VectorStore) RecordChunk(_ context.Context, orgID, recordID string, index int) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, chunk := range s.chunks {
		if chunk.OrgID == orgID && chunk.RecordID == recordID && chunk.Index == index {
			found := chunk
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

// MaxWatermark returns the newest freshness watermark for (org, kind).
func (s *VectorStore) MaxWatermark(_ context.Context, orgID string, kind domain.RecordKind) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var watermark time.Time
	for _, rec := range s.indexed {
		if rec.OrgID == orgID && rec.Kind == kind && rec.ModifiedAt.After(watermark) {
			watermark = rec.ModifiedAt
		}
	}
	return watermark, nil
}

// Stats returns the indexed record count and total chunk count.
func (s *VectorStore) Stats(_ context.Context, orgID string) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var indexedRecords, totalChunks int
	for _, rec := range s.indexed {
		if rec.OrgID == orgID {
			indexedRecords++
		}
	}
	for _, chunk := range s.chunks {
		if chunk.OrgID == orgID {
			totalChunks++
		}
	}
	return indexedRecords, totalChunks, nil
}

func cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("cosine: dimension mismatch %d vs %d", len(a), len(b))
	}
	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0, nil
	}
	sim := dot / (math.Sqrt(na2) * math.Sqrt(nb2))
	if sim < 0 {
		sim = 0
	}
	if sim > 1 {
		sim = 1
	}
	return sim, nil
}
