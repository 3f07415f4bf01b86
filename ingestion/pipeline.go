package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/extract"
	"github.com/poiesic/docchat/storage"
)

// Pipeline orchestrates the ingestion of uploaded files into the vector
// index and the file registry.
type Pipeline struct {
	extractor  *extract.Extractor
	splitter   *splitter
	enricher   *enricher
	embedder   ai.Embedder
	index      storage.VectorIndex
	registry   storage.FileRegistry
	enrichPool *ants.Pool
	logger     *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent enrichment.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.enrichPool != nil {
			p.enrichPool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.enrichPool = pool
		return nil
	}
}

// WithChunkBudget sets the chunk and overlap sizes, in tokens.
// Zero or negative values select the defaults.
func WithChunkBudget(chunkTokens, overlapTokens int) Option {
	return func(p *Pipeline) error {
		p.splitter = newSplitter(chunkTokens, overlapTokens)
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	index storage.VectorIndex,
	registry storage.FileRegistry,
	provider ai.Provider,
	opts ...Option,
) (*Pipeline, error) {
	if index == nil {
		return nil, ErrVectorIndexRequired
	}
	if registry == nil {
		return nil, ErrFileRegistryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		extractor:  extract.NewExtractor(),
		splitter:   newSplitter(0, 0),
		embedder:   provider.Embedder(),
		index:      index,
		registry:   registry,
		enrichPool: pool,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	p.enricher = newEnricher(provider.Generator(), p.logger)
	p.logger = p.logger.With("component", "ingestion")

	return p, nil
}

// Ingest processes one uploaded file end to end and returns its registry
// entry. Extraction, embedding, and index writes are fatal; no state is
// written before they all succeed. Enrichment degrades gracefully.
func (p *Pipeline) Ingest(ctx context.Context, fileName string, data []byte) (*core.IngestedFile, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	docID := uuid.NewString()
	started := time.Now()
	p.logger.Info("ingesting file", "file", fileName, "doc", docID, "bytes", len(data))

	units, err := p.extractor.Extract(ctx, data, fileName)
	if err != nil {
		return nil, err
	}

	chunks, err := p.splitter.split(docID, fileName, units)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, &extract.ExtractionError{FileName: fileName, Err: extract.ErrEmptyDocument}
	}

	p.enricher.enrichAll(ctx, p.enrichPool, chunks)

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i := range vectors {
		chunks[i].Vector = vectors[i]
	}

	if err := p.index.UpsertChunks(ctx, chunks...); err != nil {
		return nil, err
	}

	file := &core.IngestedFile{
		DocID:      docID,
		FileName:   fileName,
		UploadedAt: time.Now().UTC(),
	}
	if err := p.registry.SaveFile(ctx, file); err != nil {
		// Roll the chunks back out so a half-ingested document is not
		// left searchable without a registry entry.
		if _, cleanErr := p.index.DeleteByDocID(ctx, docID); cleanErr != nil {
			return nil, &ReconcileError{DocID: docID, SaveErr: err, CleanErr: cleanErr}
		}
		return nil, err
	}

	p.logger.Info("file ingested",
		"file", fileName,
		"doc", docID,
		"chunks", len(chunks),
		"elapsed", time.Since(started))
	return file, nil
}

// ListFiles returns the registry entries of all ingested files.
func (p *Pipeline) ListFiles(ctx context.Context) ([]*core.IngestedFile, error) {
	return p.registry.ListFiles(ctx)
}

// DeleteFile removes a document from both the vector index and the
// registry. Both sides are attempted even if one fails, so a partial
// earlier failure can be repaired by retrying.
func (p *Pipeline) DeleteFile(ctx context.Context, docID string) error {
	if _, err := p.registry.GetFile(ctx, docID); err != nil {
		return err
	}

	_, indexErr := p.index.DeleteByDocID(ctx, docID)
	registryErr := p.registry.DeleteFile(ctx, docID)

	if indexErr != nil || registryErr != nil {
		if indexErr != nil {
			indexErr = fmt.Errorf("%w: %v", ErrIndexWrite, indexErr)
		}
		if registryErr != nil {
			registryErr = fmt.Errorf("%w: %v", ErrRegistryWrite, registryErr)
		}
		return errors.Join(indexErr, registryErr)
	}
	p.logger.Info("file deleted", "doc", docID)
	return nil
}

// Release releases the enrichment worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.enrichPool != nil {
		p.enrichPool.Release()
	}
}
