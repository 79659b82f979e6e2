package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/complyline/kbengine/internal/core/domain"
	"github.com/complyline/kbengine/internal/core/ports/driven"
)

// vectorStore implements driven.VectorStore.
type vectorStore struct {
	store *Store
}

var _ driven.VectorStore = (*vectorStore)(nil)

// UpsertChunks inserts or replaces chunks keyed by (org, record, index).
func (s *vectorStore) UpsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, org_id, record_id, chunk_index, content, embedding,
			kind, title, status, category, team, record_modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(org_id, record_id, chunk_index) DO UPDATE SET
			content = excluded.content,
			embedding = excluded.embedding,
			kind = excluded.kind,
			title = excluded.title,
			status = excluded.status,
			category = excluded.category,
			team = excluded.team,
			record_modified_at = excluded.record_modified_at
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		id := chunk.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx, id, chunk.OrgID, chunk.RecordID, chunk.Index,
			chunk.Content, float32SliceToBytes(chunk.Embedding),
			string(chunk.Meta.Kind), chunk.Meta.Title, chunk.Meta.Status,
			chunk.Meta.Category, chunk.Meta.Team,
			formatTime(chunk.RecordModifiedAt)); err != nil {
			return fmt.Errorf("saving chunk %s/%d: %w", chunk.RecordID, chunk.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteRecordChunks removes every chunk for a record.
func (s *vectorStore) DeleteRecordChunks(ctx context.Context, orgID, recordID string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM chunks WHERE org_id = ? AND record_id = ?", orgID, recordID)
	if err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// MarkIndexed records that a source record has been processed.
func (s *vectorStore) MarkIndexed(ctx context.Context, rec domain.IndexedRecord) error {
	indexedAt := rec.IndexedAt
	if indexedAt.IsZero() {
		indexedAt = time.Now()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO indexed_records (org_id, record_id, kind, title, chunk_count, modified_at, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(org_id, record_id) DO UPDATE SET
			kind = excluded.kind,
			title = excluded.title,
			chunk_count = excluded.chunk_count,
			modified_at = excluded.modified_at,
			indexed_at = excluded.indexed_at
	`, rec.OrgID, rec.RecordID, string(rec.Kind), rec.Title, rec.ChunkCount,
		formatTime(rec.ModifiedAt), formatTime(indexedAt))
	if err != nil {
		return fmt.Errorf("marking record indexed: %w", err)
	}
	return nil
}

// Search returns the chunks nearest to the query vector, ordered by
// descending cosine similarity with ties broken by ascending chunk id.
func (s *vectorStore) Search(ctx context.Context, orgID string, query []float32, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("search: %w: empty query vector", domain.ErrInvalidInput)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	sqlQuery := `
		SELECT id, org_id, record_id, chunk_index, content, embedding,
			kind, title, status, category, team, record_modified_at,
			vec_cosine(embedding, ?) AS sim
		FROM chunks
		WHERE org_id = ? AND embedding IS NOT NULL`
	args := []any{float32SliceToBytes(query), orgID}

	if opts.Kind != "" {
		sqlQuery += " AND kind = ?"
		args = append(args, string(opts.Kind))
	}
	if opts.Status != "" {
		sqlQuery += " AND status = ?"
		args = append(args, opts.Status)
	}
	if opts.Category != "" {
		sqlQuery += " AND category = ?"
		args = append(args, opts.Category)
	}
	if opts.Team != "" {
		sqlQuery += " AND team = ?"
		args = append(args, opts.Team)
	}
	if opts.ExcludeRecordID != "" {
		sqlQuery += " AND record_id != ?"
		args = append(args, opts.ExcludeRecordID)
	}

	sqlQuery += " ORDER BY sim DESC, id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.store.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		var embeddingBlob []byte
		var kind, modifiedAt string
		var sim sql.NullFloat64
		if err := rows.Scan(&chunk.ID, &chunk.OrgID, &chunk.RecordID, &chunk.Index,
			&chunk.Content, &embeddingBlob, &kind, &chunk.Meta.Title,
			&chunk.Meta.Status, &chunk.Meta.Category, &chunk.Meta.Team,
			&modifiedAt, &sim); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
		chunk.Meta.Kind = domain.RecordKind(kind)
		chunk.RecordModifiedAt = parseTime(modifiedAt)

		results = append(results, domain.SearchResult{
			Chunk:      chunk,
			Similarity: clampSimilarity(sim.Float64),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return results, nil
}

// RecordChunk returns the chunk at the given index of a record.
func (s *vectorStore) RecordChunk(ctx context.Context, orgID, recordID string, index int) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, org_id, record_id, chunk_index, content, embedding,
			kind, title, status, category, team, record_modified_at
		FROM chunks
		WHERE org_id = ? AND record_id = ? AND chunk_index = ?
	`, orgID, recordID, index)

	var chunk domain.Chunk
	var embeddingBlob []byte
	var kind, modifiedAt string
	if err := row.Scan(&chunk.ID, &chunk.OrgID, &chunk.RecordID, &chunk.Index,
		&chunk.Content, &embeddingBlob, &kind, &chunk.Meta.Title,
		&chunk.Meta.Status, &chunk.Meta.Category, &chunk.Meta.Team,
		&modifiedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
	chunk.Meta.Kind = domain.RecordKind(kind)
	chunk.RecordModifiedAt = parseTime(modifiedAt)

	return &chunk, nil
}

// MaxWatermark returns the newest freshness watermark for (org, kind).
func (s *vectorStore) MaxWatermark(ctx context.Context, orgID string, kind domain.RecordKind) (time.Time, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT modified_at FROM indexed_records
		WHERE org_id = ? AND kind = ?
		ORDER BY modified_at DESC LIMIT 1
	`, orgID, string(kind))

	var watermark string
	if err := row.Scan(&watermark); err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("scanning watermark: %w", err)
	}
	return parseTime(watermark), nil
}

// Stats returns the indexed record count and total chunk count.
func (s *vectorStore) Stats(ctx context.Context, orgID string) (int, int, error) {
	var indexedRecords int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM indexed_records WHERE org_id = ?", orgID).Scan(&indexedRecords)
	if err != nil {
		return 0, 0, fmt.Errorf("counting indexed records: %w", err)
	}

	var totalChunks int
	err = s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chunks WHERE org_id = ?", orgID).Scan(&totalChunks)
	if err != nil {
		return 0, 0, fmt.Errorf("counting chunks: %w", err)
	}

	return indexedRecords, totalChunks, nil
}

// clampSimilarity bounds a cosine similarity to [0, 1]. Normalised
// embeddings stay in range on their own; the clamp guards against float
// drift and adversarial vectors.
func clampSimilarity(sim float64) float64 {
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
