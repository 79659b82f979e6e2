package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Compatible inference servers behind the same API shape
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving
	// order: output[i] corresponds to texts[i]. Implementations partition
	// the input into provider-sized sub-batches; failure of any sub-batch
	// fails the whole call. There is no partial-success contract at this
	// layer.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g. 1536).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// request. Used at startup to surface configuration errors before any
	// work is attempted.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
