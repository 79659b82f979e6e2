// Package services contains the core business logic of the knowledge engine:
// the sync manager that orchestrates ingestion runs, the retriever that
// serves semantic search, and the answerer that synthesises cited answers.
// Services depend only on the port interfaces, never on concrete adapters.
package services
