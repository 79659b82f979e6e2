// Package driving defines the interfaces that external actors use to call
// INTO the core ("driving" or "primary" ports in hexagonal architecture).
// The CLI and HTTP adapters depend on these interfaces; core services
// implement them.
package driving
