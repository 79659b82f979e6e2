package memory

import (
	"context"
	"sync"

	"github.com/complyline/kbengine/internal/core/domain"
	"github.com/complyline/kbengine/internal/core/ports/driven"
)

// SyncJobStore is an in-memory implementation of driven.SyncJobStore.
// It enforces the same one-running-job-per-(org, kind) invariant as the
// SQLite adapter's partial unique index.
type SyncJobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.SyncJob
}

var _ driven.SyncJobStore = (*SyncJobStore)(nil)

// NewSyncJobStore creates an empty in-memory sync job store.
func NewSyncJobStore() *SyncJobStore {
	return &SyncJobStore{jobs: make(map[string]domain.SyncJob)}
}

// Create inserts a new job, rejecting a second running job for the same
// (org, kind).
func (s *SyncJobStore) Create(_ context.Context, job *domain.SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.Status == domain.JobRunning {
		for _, existing := range s.jobs {
			if existing.OrgID == job.OrgID && existing.Kind == job.Kind &&
				existing.Status == domain.JobRunning {
				return domain.ErrSyncInProgress
			}
		}
	}
	s.jobs[job.ID] = *job
	return nil
}

// Update persists the job's mutable fields.
func (s *SyncJobStore) Update(_ context.Context, job *domain.SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; !ok {
		return domain.ErrNotFound
	}
	s.jobs[job.ID] = *job
	return nil
}

// Get retrieves a job by id.
func (s *SyncJobStore) Get(_ context.Context, id string) (*domain.SyncJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

// Running returns the running job for (org, kind).
func (s *SyncJobStore) Running(_ context.Context, orgID string, kind domain.RecordKind) (*domain.SyncJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, job := range s.jobs {
		if job.OrgID == orgID && job.Kind == kind && job.Status == domain.JobRunning {
			found := job
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}

// LastFinished returns the most recently finished job for (org, kind).
func (s *SyncJobStore) LastFinished(_ context.Context, orgID string, kind domain.RecordKind) (*domain.SyncJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.SyncJob
	for _, job := range s.jobs {
		if job.OrgID != orgID || job.Kind != kind || job.Status == domain.JobRunning {
			continue
		}
		if latest == nil || job.FinishedAt.After(latest.FinishedAt) {
			found := job
			latest = &found
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return latest, nil
}

// LastIncomplete returns the most recent finished job, but only when its
// progress stopped short of its total. A later run that finished in full
// supersedes older interrupted ones.
func (s *SyncJobStore) LastIncomplete(_ context.Context, orgID string, kind domain.RecordKind) (*domain.SyncJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.SyncJob
	for _, job := range s.jobs {
		if job.OrgID != orgID || job.Kind != kind || job.Status == domain.JobRunning {
			continue
		}
		if latest == nil || job.StartedAt.After(latest.StartedAt) {
			found := job
			latest = &found
		}
	}
	if latest == nil || !latest.Incomplete() {
		return nil, domain.ErrNotFound
	}
	return latest, nil
}
