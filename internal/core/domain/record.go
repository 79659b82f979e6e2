package domain

import "time"

// RecordKind identifies which source collection a record belongs to.
type RecordKind string

// Source collections indexed by the knowledge base.
const (
	// KindDocument is a policy/procedure document from the document registry.
	KindDocument RecordKind = "document"

	// KindTicket is a historical incident or change ticket.
	KindTicket RecordKind = "ticket"
)

// Valid reports whether the kind names a known source collection.
func (k RecordKind) Valid() bool {
	return k == KindDocument || k == KindTicket
}

// SourceRecord is a textual entity owned by the external compliance system.
// It is read-only to this subsystem: records are fetched, never written back.
type SourceRecord struct {
	// ExternalID is the stable identifier assigned by the source system.
	ExternalID string

	// OrgID is the owning organisation.
	OrgID string

	// Kind is the source collection the record came from.
	Kind RecordKind

	// Title is the human-readable title.
	Title string

	// Body is the free-text content. May contain HTML markup that must be
	// normalised to plain text before chunking.
	Body string

	// Status is the workflow status in the source system (e.g. "approved").
	Status string

	// Category is the source system's classification.
	Category string

	// Team is the owning team in the source system.
	Team string

	// ModifiedAt is when the record was last changed in the source system.
	// Captured as the freshness watermark at index time.
	ModifiedAt time.Time
}

// IndexedRecord marks that a source record has been processed by an
// ingestion run. Records with no extractable text still get a row here
// (with ChunkCount zero) so incremental sync does not re-fetch them.
type IndexedRecord struct {
	// OrgID is the owning organisation.
	OrgID string

	// RecordID is the source record's external id.
	RecordID string

	// Kind is the source collection.
	Kind RecordKind

	// Title is the record title at index time.
	Title string

	// ChunkCount is how many chunks the record produced.
	ChunkCount int

	// ModifiedAt is the record's last-modified timestamp captured at index
	// time (the freshness watermark).
	ModifiedAt time.Time

	// IndexedAt is when this subsystem processed the record.
	IndexedAt time.Time
}
