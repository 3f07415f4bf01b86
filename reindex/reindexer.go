// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reindex

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

const (
	// DefaultBatchSize is the default number of chunks embedded per call.
	DefaultBatchSize = 100

	// DefaultReportInterval is how often progress is reported, in chunks.
	DefaultReportInterval = 100

	defaultMaxRetries     = 3
	defaultRetryBaseDelay = time.Second
)

// Reindexer re-embeds every chunk in the vector index.
type Reindexer struct {
	index          storage.VectorIndex
	embedder       ai.Embedder
	batchSize      int
	maxRetries     int
	retryBaseDelay time.Duration
	progress       io.Writer
	reportInterval int
	logger         *slog.Logger
}

// Option configures a Reindexer.
type Option func(*Reindexer)

// WithBatchSize sets the number of chunks embedded per call.
// Values below 1 keep the default.
func WithBatchSize(size int) Option {
	return func(r *Reindexer) {
		if size >= 1 {
			r.batchSize = size
		}
	}
}

// WithRetry sets the retry policy for embedding calls.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(r *Reindexer) {
		if maxRetries >= 1 {
			r.maxRetries = maxRetries
		}
		if baseDelay > 0 {
			r.retryBaseDelay = baseDelay
		}
	}
}

// WithProgress enables progress reporting to the given writer, typically
// os.Stderr. reportInterval is in chunks; values below 1 keep the default.
func WithProgress(w io.Writer, reportInterval int) Option {
	return func(r *Reindexer) {
		r.progress = w
		if reportInterval >= 1 {
			r.reportInterval = reportInterval
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reindexer) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
	}
}

// NewReindexer creates a new reindexer.
func NewReindexer(index storage.VectorIndex, embedder ai.Embedder, opts ...Option) (*Reindexer, error) {
	if index == nil {
		return nil, ErrVectorIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &Reindexer{
		index:          index,
		embedder:       embedder,
		batchSize:      DefaultBatchSize,
		maxRetries:     defaultMaxRetries,
		retryBaseDelay: defaultRetryBaseDelay,
		reportInterval: DefaultReportInterval,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "reindex")
	return r, nil
}

// Run re-embeds every chunk in the index and returns the number processed.
// Chunks are processed in batches; a batch that keeps failing after retries
// aborts the run, leaving earlier batches re-embedded with their new vectors
// and later ones untouched. Rerunning is safe at any point.
func (r *Reindexer) Run(ctx context.Context) (int, error) {
	var chunks []*core.Chunk
	err := r.index.ForEachChunk(ctx, func(chunk *core.Chunk) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	r.logger.Info("reindexing chunks", "chunks", len(chunks), "batchSize", r.batchSize)

	var tracker *ProgressTracker
	if r.progress != nil {
		tracker = NewProgressTracker(r.progress, len(chunks), r.reportInterval)
		tracker.Start()
	}

	processed := 0
	for start := 0; start < len(chunks); start += r.batchSize {
		select {
		case <-ctx.Done():
			return processed, ctx.Err()
		default:
		}

		end := start + r.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		if err := r.processBatch(ctx, batch); err != nil {
			return processed, err
		}
		processed += len(batch)

		if tracker != nil {
			tracker.Increment(len(batch))
		}
	}

	if tracker != nil {
		tracker.Finish()
	}
	r.logger.Info("reindexing complete", "chunks", processed)
	return processed, nil
}

// processBatch re-embeds one batch and writes it back.
// Vectors are normalized after embedding so dot product scoring stays valid.
func (r *Reindexer) processBatch(ctx context.Context, batch []*core.Chunk) error {
	texts := make([]string, len(batch))
	for i, chunk := range batch {
		texts[i] = chunk.Text
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = r.embedder.EmbedTexts(ctx, texts)
		return err
	}, r.maxRetries, r.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", r.maxRetries, err)
	}

	if len(embeddings) != len(batch) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(embeddings))
	}

	for i := range batch {
		batch[i].Vector = NormalizeVector(embeddings[i])
	}

	return r.index.UpsertChunks(ctx, batch...)
}
