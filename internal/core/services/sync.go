package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/complyline/kbengine/internal/chunker"
	"github.com/complyline/kbengine/internal/core/domain"
	"github.com/complyline/kbengine/internal/core/ports/driven"
	"github.com/complyline/kbengine/internal/core/ports/driving"
	"github.com/complyline/kbengine/internal/logger"
	"github.com/complyline/kbengine/internal/normalisers/html"
)

// Ensure SyncManager implements the interface.
var _ driving.SyncService = (*SyncManager)(nil)

// Sync run defaults.
const (
	// DefaultCooldown is the minimum interval between finished runs for the
	// same (org, kind).
	DefaultCooldown = 30 * time.Second

	// DefaultPageSize is how many records each source page holds.
	DefaultPageSize = 500

	// DefaultPagePause bounds load on the source system between pages.
	DefaultPagePause = 2 * time.Second

	// DefaultStaleAfter is how long a running job may go without a heartbeat
	// before it is treated as abandoned.
	DefaultStaleAfter = 15 * time.Minute
)

// SyncManager orchestrates ingestion runs: scope determination, paging
// through the record source, chunking, page-batched embedding, persistence,
// and job progress tracking.
type SyncManager struct {
	source   driven.RecordSource
	embedder driven.EmbeddingService
	vectors  driven.VectorStore
	jobs     driven.SyncJobStore
	splitter *chunker.Splitter

	cooldown   time.Duration
	pageSize   int
	pagePause  time.Duration
	staleAfter time.Duration
	now        func() time.Time

	wg sync.WaitGroup
}

// SyncOption configures a SyncManager.
type SyncOption func(*SyncManager)

// WithCooldown sets the minimum interval between finished runs.
func WithCooldown(d time.Duration) SyncOption {
	return func(m *SyncManager) {
		if d >= 0 {
			m.cooldown = d
		}
	}
}

// WithPageSize sets the source page size.
func WithPageSize(n int) SyncOption {
	return func(m *SyncManager) {
		if n > 0 {
			m.pageSize = n
		}
	}
}

// WithPagePause sets the pause between source pages.
func WithPagePause(d time.Duration) SyncOption {
	return func(m *SyncManager) {
		if d >= 0 {
			m.pagePause = d
		}
	}
}

// WithStaleAfter sets the heartbeat age beyond which a running job is
// treated as abandoned.
func WithStaleAfter(d time.Duration) SyncOption {
	return func(m *SyncManager) {
		if d > 0 {
			m.staleAfter = d
		}
	}
}

// WithClock overrides the time source. Used by tests to exercise the
// cooldown and staleness windows.
func WithClock(now func() time.Time) SyncOption {
	return func(m *SyncManager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithSplitter overrides the text splitter.
func WithSplitter(s *chunker.Splitter) SyncOption {
	return func(m *SyncManager) {
		if s != nil {
			m.splitter = s
		}
	}
}

// NewSyncManager creates a sync manager over the given collaborators.
func NewSyncManager(
	source driven.RecordSource,
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	jobs driven.SyncJobStore,
	opts ...SyncOption,
) *SyncManager {
	m := &SyncManager{
		source:     source,
		embedder:   embedder,
		vectors:    vectors,
		jobs:       jobs,
		splitter:   chunker.New(),
		cooldown:   DefaultCooldown,
		pageSize:   DefaultPageSize,
		pagePause:  DefaultPagePause,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartSync begins an ingestion run for (org, kind). The guards run
// synchronously; the ingestion loop runs in a background goroutine and
// reports through the job row.
func (m *SyncManager) StartSync(ctx context.Context, orgID string, kind domain.RecordKind, mode domain.SyncMode) (string, error) {
	if orgID == "" {
		return "", fmt.Errorf("start sync: %w: organisation id is required", domain.ErrInvalidInput)
	}
	if !kind.Valid() {
		return "", fmt.Errorf("start sync: %w: unknown record kind %q", domain.ErrInvalidInput, kind)
	}
	if mode == "" {
		mode = domain.SyncIncremental
	}
	if mode != domain.SyncIncremental && mode != domain.SyncFull {
		return "", fmt.Errorf("start sync: %w: unknown sync mode %q", domain.ErrInvalidInput, mode)
	}
	if m.embedder == nil {
		return "", fmt.Errorf("start sync: %w", domain.ErrEmbeddingUnavailable)
	}
	if m.source == nil {
		return "", fmt.Errorf("start sync: source API not configured")
	}

	// Mutual exclusion: a live run wins; a run whose heartbeat went stale is
	// treated as abandoned and finalised so its progress can be resumed.
	if running, err := m.jobs.Running(ctx, orgID, kind); err == nil {
		if m.now().Sub(running.UpdatedAt) <= m.staleAfter {
			logger.Debug("sync already running for %s/%s: job %s", orgID, kind, running.ID)
			return running.ID, nil
		}
		logger.Warn("abandoning stale sync job %s (no heartbeat since %s)", running.ID, running.UpdatedAt)
		running.Status = domain.JobFailed
		running.Message = "abandoned: no heartbeat"
		running.UpdatedAt = m.now()
		running.FinishedAt = m.now()
		if err := m.jobs.Update(ctx, running); err != nil {
			return "", fmt.Errorf("abandoning stale job: %w", err)
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("checking running job: %w", err)
	}

	// Cooldown throttles repeated triggering; it is a window, not a lock.
	if last, err := m.jobs.LastFinished(ctx, orgID, kind); err == nil && !last.FinishedAt.IsZero() {
		if elapsed := m.now().Sub(last.FinishedAt); elapsed < m.cooldown {
			return "", &domain.CooldownError{Remaining: m.cooldown - elapsed}
		}
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("checking last finished job: %w", err)
	}

	query := driven.RecordQuery{OrgID: orgID, Kind: kind}
	if mode == domain.SyncIncremental {
		watermark, err := m.vectors.MaxWatermark(ctx, orgID, kind)
		if err != nil {
			return "", fmt.Errorf("reading freshness watermark: %w", err)
		}
		// First run: no watermark yet, incremental degrades to full.
		if !watermark.IsZero() {
			query.ModifiedAfter = &watermark
		}
	}

	total, err := m.source.Count(ctx, query)
	if err != nil {
		return "", fmt.Errorf("counting source records: %w", err)
	}

	startPage := 1
	if mode == domain.SyncIncremental && query.ModifiedAfter != nil && total == 0 {
		// Nothing changed. Before declaring up to date, check for an
		// interrupted earlier run and redo the missing work over the full
		// record set.
		incomplete, err := m.jobs.LastIncomplete(ctx, orgID, kind)
		switch {
		case err == nil:
			query.ModifiedAfter = nil
			total, err = m.source.Count(ctx, query)
			if err != nil {
				return "", fmt.Errorf("counting source records: %w", err)
			}
			mode = domain.SyncFull
			// Page arithmetic only holds when the interrupted run's progress
			// counted full-set records. An interrupted incremental counted
			// changed-scope records, so it restarts from the first page.
			if incomplete.Mode == domain.SyncFull {
				startPage = incomplete.Progress/m.pageSize + 1
				logger.Info("resuming incomplete sync %s at page %d (%d/%d records done)",
					incomplete.ID, startPage, incomplete.Progress, incomplete.Total)
			} else {
				logger.Info("redoing interrupted incremental sync %s as a full run",
					incomplete.ID)
			}
		case errors.Is(err, domain.ErrNotFound):
			return m.recordUpToDate(ctx, orgID, kind)
		default:
			return "", fmt.Errorf("checking incomplete job: %w", err)
		}
	}

	job := &domain.SyncJob{
		ID:        uuid.New().String(),
		OrgID:     orgID,
		Kind:      kind,
		Mode:      mode,
		Status:    domain.JobRunning,
		Total:     total,
		Progress:  min((startPage-1)*m.pageSize, total),
		StartedAt: m.now(),
		UpdatedAt: m.now(),
	}
	if err := m.jobs.Create(ctx, job); err != nil {
		return "", fmt.Errorf("creating sync job: %w", err)
	}

	logger.Section(fmt.Sprintf("Sync %s/%s", orgID, kind))
	logger.Info("job %s: %d records expected, starting at page %d", job.ID, total, startPage)

	// The run outlives the triggering request.
	runCtx := context.WithoutCancel(ctx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(runCtx, job, query, startPage)
	}()

	return job.ID, nil
}

// recordUpToDate writes a trivial completed job for an incremental run that
// found nothing to do.
func (m *SyncManager) recordUpToDate(ctx context.Context, orgID string, kind domain.RecordKind) (string, error) {
	job := &domain.SyncJob{
		ID:         uuid.New().String(),
		OrgID:      orgID,
		Kind:       kind,
		Mode:       domain.SyncIncremental,
		Status:     domain.JobCompleted,
		Message:    "0 new records",
		StartedAt:  m.now(),
		UpdatedAt:  m.now(),
		FinishedAt: m.now(),
	}
	if err := m.jobs.Create(ctx, job); err != nil {
		return "", fmt.Errorf("recording up-to-date job: %w", err)
	}
	logger.Info("sync %s/%s: already up to date", orgID, kind)
	return job.ID, nil
}

// run executes the ingestion loop and finalises the job row.
func (m *SyncManager) run(ctx context.Context, job *domain.SyncJob, query driven.RecordQuery, startPage int) {
	errCount := 0

	for page := startPage; ; page++ {
		records, err := m.source.FetchPage(ctx, query, page, m.pageSize)
		if err != nil {
			m.fail(ctx, job, fmt.Errorf("fetching page %d: %w", page, err))
			return
		}
		if len(records) == 0 {
			break
		}

		if err := m.processPage(ctx, job.OrgID, records, &errCount); err != nil {
			m.fail(ctx, job, err)
			return
		}

		job.Progress = min(job.Progress+len(records), job.Total)
		job.UpdatedAt = m.now()
		if err := m.jobs.Update(ctx, job); err != nil {
			logger.Warn("persisting progress for job %s: %v", job.ID, err)
		}
		logger.Debug("job %s: page %d done, %d/%d records", job.ID, page, job.Progress, job.Total)

		// A short page, or reaching the expected total, marks the last page:
		// stop without the inter-page pause.
		if len(records) < m.pageSize || job.Progress >= job.Total {
			break
		}
		if !m.pause(ctx) {
			m.fail(ctx, job, ctx.Err())
			return
		}
	}

	job.Status = domain.JobCompleted
	if errCount > 0 {
		job.Message = fmt.Sprintf("completed with %d errors", errCount)
	}
	job.UpdatedAt = m.now()
	job.FinishedAt = m.now()
	if err := m.jobs.Update(ctx, job); err != nil {
		logger.Warn("finalising job %s: %v", job.ID, err)
	}
	logger.Info("job %s: completed, %d/%d records, %d errors", job.ID, job.Progress, job.Total, errCount)
}

// processPage chunks and embeds one page of records and persists the result.
// Embedding the whole page in one batched call amortises request overhead.
// Per-record persistence failures are counted, not fatal.
func (m *SyncManager) processPage(ctx context.Context, orgID string, records []domain.SourceRecord, errCount *int) error {
	type recordChunks struct {
		record domain.SourceRecord
		chunks []chunker.Chunk
	}

	prepared := make([]recordChunks, 0, len(records))
	var texts []string
	for _, rec := range records {
		chunks := m.chunkRecord(rec)
		prepared = append(prepared, recordChunks{record: rec, chunks: chunks})
		for _, c := range chunks {
			texts = append(texts, c.Content)
		}
	}

	var embeddings [][]float32
	if len(texts) > 0 {
		var err error
		embeddings, err = m.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding page of %d chunks: %w", len(texts), err)
		}
		if len(embeddings) != len(texts) {
			return fmt.Errorf("embedding page: expected %d vectors, got %d", len(texts), len(embeddings))
		}
	}

	next := 0
	for _, rc := range prepared {
		rec := rc.record
		chunks := make([]domain.Chunk, len(rc.chunks))
		for i, c := range rc.chunks {
			chunks[i] = domain.Chunk{
				OrgID:    orgID,
				RecordID: rec.ExternalID,
				Index:    c.Index,
				Content:  c.Content,
				Embedding: embeddings[next],
				Meta: domain.ChunkMeta{
					Kind:     rec.Kind,
					Title:    rec.Title,
					Status:   rec.Status,
					Category: rec.Category,
					Team:     rec.Team,
				},
				RecordModifiedAt: rec.ModifiedAt,
			}
			next++
		}

		if err := m.persistRecord(ctx, orgID, rec, chunks); err != nil {
			logger.Warn("indexing record %s: %v", rec.ExternalID, err)
			*errCount++
		}
	}

	return nil
}

// chunkRecord normalises a record body and splits it. Bodies that fit the
// chunk budget become a single chunk without splitting; empty bodies yield
// no chunks.
func (m *SyncManager) chunkRecord(rec domain.SourceRecord) []chunker.Chunk {
	plain := html.ToText(rec.Body)
	if plain == "" {
		return nil
	}
	if len(plain) <= m.splitter.ChunkSize() {
		return []chunker.Chunk{{Content: plain, Start: 0, End: len(plain), Index: 0}}
	}
	return m.splitter.Split(plain)
}

// persistRecord replaces a record's chunks wholesale and marks it indexed.
func (m *SyncManager) persistRecord(ctx context.Context, orgID string, rec domain.SourceRecord, chunks []domain.Chunk) error {
	if err := m.vectors.DeleteRecordChunks(ctx, orgID, rec.ExternalID); err != nil {
		return fmt.Errorf("deleting stale chunks: %w", err)
	}
	if err := m.vectors.UpsertChunks(ctx, chunks); err != nil {
		return fmt.Errorf("saving chunks: %w", err)
	}
	// Zero-chunk records are still marked so incremental sync skips them.
	if err := m.vectors.MarkIndexed(ctx, domain.IndexedRecord{
		OrgID:      orgID,
		RecordID:   rec.ExternalID,
		Kind:       rec.Kind,
		Title:      rec.Title,
		ChunkCount: len(chunks),
		ModifiedAt: rec.ModifiedAt,
		IndexedAt:  m.now(),
	}); err != nil {
		return fmt.Errorf("marking record indexed: %w", err)
	}
	return nil
}

// fail finalises the job as failed, keeping the progress reached so far for
// later resumption.
func (m *SyncManager) fail(ctx context.Context, job *domain.SyncJob, cause error) {
	logger.Warn("job %s failed: %v", job.ID, cause)
	job.Status = domain.JobFailed
	job.Message = cause.Error()
	job.UpdatedAt = m.now()
	job.FinishedAt = m.now()
	if err := m.jobs.Update(ctx, job); err != nil {
		logger.Warn("finalising failed job %s: %v", job.ID, err)
	}
}

// pause sleeps the inter-page interval, returning false if the context
// expired first.
func (m *SyncManager) pause(ctx context.Context) bool {
	if m.pagePause <= 0 {
		return true
	}
	timer := time.NewTimer(m.pagePause)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// JobStatus returns the job row for a run.
func (m *SyncManager) JobStatus(ctx context.Context, jobID string) (*domain.SyncJob, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job status: %w: job id is required", domain.ErrInvalidInput)
	}
	job, err := m.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("getting job %s: %w", jobID, err)
	}
	return job, nil
}

// KBStatus summarises the indexed state for an organisation. The last and
// incomplete sync are reported across both collections by taking the most
// recent per kind.
func (m *SyncManager) KBStatus(ctx context.Context, orgID string) (*domain.KBStatus, error) {
	if orgID == "" {
		return nil, fmt.Errorf("kb status: %w: organisation id is required", domain.ErrInvalidInput)
	}

	indexed, chunks, err := m.vectors.Stats(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}

	status := &domain.KBStatus{
		IndexedRecords: indexed,
		TotalChunks:    chunks,
	}

	for _, kind := range []domain.RecordKind{domain.KindDocument, domain.KindTicket} {
		last, err := m.jobs.LastFinished(ctx, orgID, kind)
		if err == nil {
			if status.LastSync == nil || last.FinishedAt.After(status.LastSync.FinishedAt) {
				status.LastSync = last
			}
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("reading last sync: %w", err)
		}

		incomplete, err := m.jobs.LastIncomplete(ctx, orgID, kind)
		if err == nil {
			if status.IncompleteSync == nil || incomplete.StartedAt.After(status.IncompleteSync.StartedAt) {
				status.IncompleteSync = incomplete
			}
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("reading incomplete sync: %w", err)
		}
	}

	return status, nil
}

// Wait blocks until all background runs started by this manager finish.
func (m *SyncManager) Wait() {
	m.wg.Wait()
}
