package domain

import "time"

// JobStatus is the lifecycle state of a sync job.
type JobStatus string

// Sync job states. A job moves running -> completed | failed and is never
// deleted; finished rows form the audit trail used to detect unfinished work.
const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// SyncMode selects the scope of an ingestion run.
type SyncMode string

const (
	// SyncIncremental fetches only records modified after the stored
	// freshness watermark. Degrades to full on the first run.
	SyncIncremental SyncMode = "incremental"

	// SyncFull fetches all records regardless of watermark.
	SyncFull SyncMode = "full"
)

// SyncJob represents one ingestion run over a source collection.
// At most one job with status running may exist per (org, kind) pair.
type SyncJob struct {
	// ID is the unique identifier for the job.
	ID string

	// OrgID is the owning organisation.
	OrgID string

	// Kind is the source collection this run ingests.
	Kind RecordKind

	// Mode is the scope the run was executed with. Progress counts records
	// within that scope, so only full-mode runs can be resumed by page
	// arithmetic over the full record set.
	Mode SyncMode

	// Status is the current lifecycle state.
	Status JobStatus

	// Total is the number of records the run expects to process.
	Total int

	// Progress is the number of records processed so far. It only
	// increases within a run and is capped at Total. It persists even on
	// failure, enabling resumption.
	Progress int

	// Message holds the failure reason for failed jobs, or an optional
	// completion note (e.g. "completed with 3 errors").
	Message string

	// StartedAt is when the run began.
	StartedAt time.Time

	// UpdatedAt is the run's heartbeat, bumped on every progress update.
	// Running jobs with a stale heartbeat are treated as abandoned.
	UpdatedAt time.Time

	// FinishedAt is when the run reached a terminal state.
	FinishedAt time.Time
}

// Incomplete reports whether the job stopped before processing every
// record it expected to.
func (j *SyncJob) Incomplete() bool {
	return j.Progress < j.Total
}

// KBStatus summarises the indexed state of an organisation's knowledge base.
type KBStatus struct {
	// IndexedRecords is the number of source records marked indexed.
	IndexedRecords int

	// TotalChunks is the number of stored chunks.
	TotalChunks int

	// LastSync is the most recent finished job, or nil if none.
	LastSync *SyncJob

	// IncompleteSync is the most recent finished-but-incomplete job that a
	// future incremental trigger would resume, or nil if none.
	IncompleteSync *SyncJob
}
