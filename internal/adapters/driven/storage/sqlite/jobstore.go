package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/complyline/kbengine/internal/core/domain"
	"github.com/complyline/kbengine/internal/core/ports/driven"
)

// syncJobStore implements driven.SyncJobStore.
type syncJobStore struct {
	store *Store
}

var _ driven.SyncJobStore = (*syncJobStore)(nil)

// Create inserts a new job. The partial unique index on running jobs turns
// a concurrent second insert into a constraint violation, which surfaces as
// domain.ErrSyncInProgress.
func (s *syncJobStore) Create(ctx context.Context, job *domain.SyncJob) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_jobs (id, org_id, kind, mode, status, total, progress, message,
			started_at, updated_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.OrgID, string(job.Kind), string(job.Mode), string(job.Status), job.Total,
		job.Progress, job.Message, formatTime(job.StartedAt), formatTime(job.UpdatedAt),
		nullTime(job.FinishedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSyncInProgress
		}
		return fmt.Errorf("creating sync job: %w", err)
	}
	return nil
}

// Update persists the job's mutable fields.
func (s *syncJobStore) Update(ctx context.Context, job *domain.SyncJob) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE sync_jobs
		SET status = ?, total = ?, progress = ?, message = ?, updated_at = ?, finished_at = ?
		WHERE id = ?
	`, string(job.Status), job.Total, job.Progress, job.Message,
		formatTime(job.UpdatedAt), nullTime(job.FinishedAt), job.ID)
	if err != nil {
		return fmt.Errorf("updating sync job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Get retrieves a job by id.
func (s *syncJobStore) Get(ctx context.Context, id string) (*domain.SyncJob, error) {
	row := s.store.db.QueryRowContext(ctx, jobSelect+" WHERE id = ?", id)
	return scanJob(row)
}

// Running returns the running job for (org, kind).
func (s *syncJobStore) Running(ctx context.Context, orgID string, kind domain.RecordKind) (*domain.SyncJob, error) {
	row := s.store.db.QueryRowContext(ctx,
		jobSelect+" WHERE org_id = ? AND kind = ? AND status = ?",
		orgID, string(kind), string(domain.JobRunning))
	return scanJob(row)
}

// LastFinished returns the most recently finished job for (org, kind).
func (s *syncJobStore) LastFinished(ctx context.Context, orgID string, kind domain.RecordKind) (*domain.SyncJob, error) {
	row := s.store.db.QueryRowContext(ctx,
		jobSelect+` WHERE org_id = ? AND kind = ? AND status != ?
		ORDER BY finished_at DESC LIMIT 1`,
		orgID, string(kind), string(domain.JobRunning))
	return scanJob(row)
}

// LastIncomplete returns the most recent finished job, but only when its
// progress stopped short of its total. A later run that finished in full
// supersedes older interrupted ones.
func (s *syncJobStore) LastIncomplete(ctx context.Context, orgID string, kind domain.RecordKind) (*domain.SyncJob, error) {
	row := s.store.db.QueryRowContext(ctx,
		jobSelect+` WHERE org_id = ? AND kind = ? AND status != ?
		ORDER BY started_at DESC LIMIT 1`,
		orgID, string(kind), string(domain.JobRunning))
	job, err := scanJob(row)
	if err != nil {
		return nil, err
	}
	if !job.Incomplete() {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

const jobSelect = `
	SELECT id, org_id, kind, mode, status, total, progress, message,
		started_at, updated_at, finished_at
	FROM sync_jobs`

// scanJob scans a single job row.
func scanJob(row *sql.Row) (*domain.SyncJob, error) {
	var job domain.SyncJob
	var kind, mode, status, startedAt, updatedAt string
	var finishedAt sql.NullString
	if err := row.Scan(&job.ID, &job.OrgID, &kind, &mode, &status, &job.Total,
		&job.Progress, &job.Message, &startedAt, &updatedAt, &finishedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning sync job: %w", err)
	}
	job.Kind = domain.RecordKind(kind)
	job.Mode = domain.SyncMode(mode)
	job.Status = domain.JobStatus(status)
	job.StartedAt = parseTime(startedAt)
	job.UpdatedAt = parseTime(updatedAt)
	if finishedAt.Valid {
		job.FinishedAt = parseTime(finishedAt.String)
	}
	return &job, nil
}

// nullTime maps the zero time to NULL for storage.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

// isUniqueViolation reports whether an error is a SQLite unique-constraint
// failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
