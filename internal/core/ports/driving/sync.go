package driving

import (
	"context"

	"github.com/complyline/kbengine/internal/core/domain"
)

// SyncService triggers and observes ingestion runs.
type SyncService interface {
	// StartSync begins an ingestion run for (org, kind) and returns its
	// job id immediately; the run continues in the background and its
	// outcome is written to the job row.
	//
	// If a run is already active for the pair, the existing job's id is
	// returned and no new run starts. If the previous run finished within
	// the cooldown window, StartSync fails with a *domain.CooldownError.
	StartSync(ctx context.Context, orgID string, kind domain.RecordKind, mode domain.SyncMode) (string, error)

	// JobStatus returns the job row for a run, running or finished.
	JobStatus(ctx context.Context, jobID string) (*domain.SyncJob, error)

	// KBStatus summarises the indexed state for an organisation.
	KBStatus(ctx context.Context, orgID string) (*domain.KBStatus, error)
}
