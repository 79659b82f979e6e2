// Package domain defines the core business entities for the knowledge
// indexing and retrieval engine.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SourceRecord: A textual entity fetched from the compliance system
//   - Chunk: A bounded slice of a record's text with its own embedding
//   - SyncJob: One ingestion run with progress and lifecycle state
//   - SearchResult / Answer: Retrieval and answer-synthesis outputs
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
