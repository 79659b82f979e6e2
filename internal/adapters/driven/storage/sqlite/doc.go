// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - VectorStore: Chunk persistence and cosine nearest-neighbour search
//   - SyncJobStore: Sync job persistence and the running-job mutual exclusion
//
// # Vector Search
//
// Cosine similarity is computed inside SQLite through a registered
// deterministic scalar function (vec_cosine) over embedding BLOBs, so
// nearest-neighbour queries are a plain ORDER BY with parameterized filters.
// Ties are broken by ascending chunk id to keep result order reproducible.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. A partial unique index on sync_jobs enforces the
// one-running-job-per-collection invariant at the storage layer.
//
// # Data Location
//
// By default, the database is stored at ~/.kbengine/data/knowledge.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
