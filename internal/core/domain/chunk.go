package domain

import "time"

// Chunk is a unit of indexed text: a bounded slice of a source record's
// body with its own embedding vector.
//
// The pair (OrgID, RecordID, Index) is unique. Re-indexing a record
// replaces all of its prior chunks rather than appending.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// OrgID is the owning organisation.
	OrgID string

	// RecordID is the external id of the owning source record.
	RecordID string

	// Index is the zero-based position of this chunk within the record.
	// Chunks of the same record are ordered and contiguous.
	Index int

	// Content is the chunk text.
	Content string

	// Embedding is the vector representation for semantic search.
	Embedding []float32

	// Meta carries source-record fields copied at index time.
	Meta ChunkMeta

	// RecordModifiedAt is the source record's last-modified timestamp
	// captured at index time (the freshness watermark).
	RecordModifiedAt time.Time
}

// ChunkMeta is the typed metadata attached to every chunk.
// Fields are enumerated explicitly so downstream filtering stays type-safe.
type ChunkMeta struct {
	// Kind is the source collection of the owning record.
	Kind RecordKind

	// Title is the owning record's title.
	Title string

	// Status is the owning record's workflow status.
	Status string

	// Category is the owning record's classification.
	Category string

	// Team is the owning record's team.
	Team string
}
