package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces text from prompts.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Complete generates a single completion for the prompt and returns it
	// once it is fully produced. Used for short derived text such as chunk
	// keywords, chunk summaries, and conversation titles.
	Complete(ctx context.Context, prompt string) (string, error)

	// StreamComplete generates a completion for the prompt, invoking onDelta
	// for every text fragment as it arrives. If onDelta returns an error the
	// stream is abandoned and that error is returned; the partial output must
	// not be treated as a completed answer. On success the full assembled
	// text is returned.
	StreamComplete(ctx context.Context, prompt string, onDelta func(chunk string) error) (string, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle
// management. A provider creates and manages Embedder and Generator instances,
// ensuring they share configuration and resources appropriately.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Generator returns the text generation service.
	// The returned Generator is safe for concurrent use.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
