package driven

import (
	"context"

	"github.com/complyline/kbengine/internal/core/domain"
)

// SyncJobStore persists sync jobs. Rows are created at run start, updated
// as pages complete, finalised at run end, and never deleted: they form the
// audit trail used to detect unfinished work.
//
// The store is the single source of truth for "is anything running": at most
// one running job may exist per (org, kind), enforced at the storage layer
// so that concurrent process instances cannot race past an in-memory check.
type SyncJobStore interface {
	// Create inserts a new job. If the job's status is running and a
	// running job already exists for the same (org, kind), Create fails
	// with domain.ErrSyncInProgress and inserts nothing.
	Create(ctx context.Context, job *domain.SyncJob) error

	// Update persists the job's progress, status, message and timestamps.
	Update(ctx context.Context, job *domain.SyncJob) error

	// Get retrieves a job by id, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.SyncJob, error)

	// Running returns the running job for (org, kind), or
	// domain.ErrNotFound if none.
	Running(ctx context.Context, orgID string, kind domain.RecordKind) (*domain.SyncJob, error)

	// LastFinished returns the most recently finished (completed or
	// failed) job for (org, kind), or domain.ErrNotFound. Used for the
	// cooldown check.
	LastFinished(ctx context.Context, orgID string, kind domain.RecordKind) (*domain.SyncJob, error)

	// LastIncomplete returns the most recent finished job, but only when
	// its progress stopped short of its total; otherwise domain.ErrNotFound.
	// A later run that finished in full supersedes older interrupted ones.
	// Used to resume interrupted runs.
	LastIncomplete(ctx context.Context, orgID string, kind domain.RecordKind) (*domain.SyncJob, error)
}
