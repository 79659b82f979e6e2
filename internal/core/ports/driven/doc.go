// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - RecordSource: Paginated fetch of source records from the compliance system
//   - EmbeddingService: Converts text batches into fixed-dimension vectors
//   - VectorStore: Chunk persistence and cosine nearest-neighbour search
//   - SyncJobStore: Sync job persistence and the running-job mutual exclusion
//
// # Optional Interfaces
//
//   - LLMService: Chat completion for answer synthesis. Without it, ask
//     operations fail with domain.ErrLLMUnavailable; search still works.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
