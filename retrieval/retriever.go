package retrieval

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

const (
	// defaultMinSimilarity is the inclusive score floor for a chunk to
	// count as relevant.
	defaultMinSimilarity = 0.50
	// defaultMaxChunks bounds how many chunks one prompt carries.
	defaultMaxChunks = 5
)

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrVectorIndexRequired is returned when a vector index is not provided.
	ErrVectorIndexRequired = errors.New("vector index required")
)

// Retriever finds chunks relevant to a question.
type Retriever struct {
	embedder      ai.Embedder
	index         storage.VectorIndex
	minSimilarity float32
	maxChunks     int
	logger        *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithMinSimilarity sets the inclusive similarity threshold.
func WithMinSimilarity(threshold float32) Option {
	return func(r *Retriever) {
		r.minSimilarity = threshold
	}
}

// WithMaxChunks sets the result limit.
// Values below 1 keep the default.
func WithMaxChunks(limit int) Option {
	return func(r *Retriever) {
		if limit >= 1 {
			r.maxChunks = limit
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
	}
}

// NewRetriever creates a new retriever over the index.
func NewRetriever(embedder ai.Embedder, index storage.VectorIndex, opts ...Option) (*Retriever, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if index == nil {
		return nil, ErrVectorIndexRequired
	}

	r := &Retriever{
		embedder:      embedder,
		index:         index,
		minSimilarity: defaultMinSimilarity,
		maxChunks:     defaultMaxChunks,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "retrieval")
	return r, nil
}

// Retrieve embeds the question and returns the most similar chunks, best
// first. An empty result is valid and means nothing cleared the threshold.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]*core.ChunkMatch, error) {
	vector, err := r.embedder.EmbedText(ctx, question)
	if err != nil {
		return nil, err
	}

	matches, err := r.index.FindSimilar(ctx, vector, r.minSimilarity, r.maxChunks)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("retrieved chunks", "question_len", len(question), "matches", len(matches))
	return matches, nil
}
