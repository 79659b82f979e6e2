package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSyncInProgress indicates a sync is already running for the same
	// organisation and collection.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrSyncCooldown indicates the previous sync finished too recently.
	// Use errors.As with *CooldownError to read the remaining wait.
	ErrSyncCooldown = errors.New("sync cooldown active")

	// ErrEmbeddingUnavailable indicates the embedding provider is not
	// configured. Indexing and semantic search are disabled without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the chat-completion provider is not
	// configured. Answer synthesis is disabled without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")
)

// CooldownError reports how long until a new sync may be started.
type CooldownError struct {
	// Remaining is the time left in the cooldown window.
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("sync cooldown active, retry in %s", e.Remaining.Round(time.Second))
}

// Is makes errors.Is(err, ErrSyncCooldown) match a *CooldownError.
func (e *CooldownError) Is(target error) bool {
	return target == ErrSyncCooldown
}
