// Package memory provides in-memory implementations of the storage driven
// ports. They mirror the SQLite adapter's semantics, including search result
// ordering and the one-running-job invariant, and are used for service-level
// tests and ephemeral setups.
package memory
