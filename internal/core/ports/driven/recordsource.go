package driven

import (
	"context"
	"time"

	"github.com/complyline/kbengine/internal/core/domain"
)

// RecordQuery selects the scope of records fetched from the source system.
type RecordQuery struct {
	// OrgID is the owning organisation.
	OrgID string

	// Kind is the source collection to fetch from.
	Kind domain.RecordKind

	// ModifiedAfter, when set, restricts the fetch to records changed
	// strictly after the given timestamp (incremental scope). Nil means
	// all records (full scope).
	ModifiedAfter *time.Time
}

// RecordSource fetches source records from the external compliance system.
// Records are read-only to this subsystem.
type RecordSource interface {
	// Count returns the number of records matching the query, used to set
	// a sync job's expected total before paging begins.
	Count(ctx context.Context, q RecordQuery) (int, error)

	// FetchPage returns one page of matching records. Pages are numbered
	// from 1. A page shorter than pageSize marks the end of the result
	// set; a later page returns an empty slice.
	FetchPage(ctx context.Context, q RecordQuery, page, pageSize int) ([]domain.SourceRecord, error)
}
