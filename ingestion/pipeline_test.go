package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/docchat/ai/mock"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/extract"
	"github.com/poiesic/docchat/storage"
	"github.com/poiesic/docchat/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T, opts ...Option) (*Pipeline, *badger.MemoryStores, *mock.MockProvider) {
	t.Helper()

	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	provider := mock.NewMockProvider().(*mock.MockProvider)
	provider.GetMockGenerator().Response = "keywords, testing, ingestion"

	pipeline, err := NewPipeline(stores.Index, stores.Files, provider, opts...)
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)

	return pipeline, stores, provider
}

func TestIngest_RoundTrip(t *testing.T) {
	pipeline, stores, _ := newTestPipeline(t)
	ctx := context.Background()

	file, err := pipeline.Ingest(ctx, "notes.txt", []byte("The vacation policy grants twenty days per year."))
	require.NoError(t, err)
	require.NotEmpty(t, file.DocID)
	assert.Equal(t, "notes.txt", file.FileName)
	assert.False(t, file.UploadedAt.IsZero())

	count, err := stores.Index.CountByDocID(ctx, file.DocID)
	require.NoError(t, err)
	assert.Greater(t, count, 0)

	files, err := pipeline.ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, file.DocID, files[0].DocID)
}

func TestIngest_ChunksCarryMetadata(t *testing.T) {
	pipeline, stores, _ := newTestPipeline(t)
	ctx := context.Background()

	file, err := pipeline.Ingest(ctx, "handbook.md", []byte("# Benefits\n\nDetails about employee benefits."))
	require.NoError(t, err)

	err = stores.Index.ForEachChunk(ctx, func(chunk *core.Chunk) error {
		assert.Equal(t, file.DocID, chunk.Metadata.DocID)
		assert.Equal(t, "handbook.md", chunk.Metadata.Source)
		assert.NotEmpty(t, chunk.Vector)
		assert.NotEmpty(t, chunk.Metadata.Keywords)
		assert.LessOrEqual(t, len(chunk.Metadata.Keywords), 5)
		return nil
	})
	require.NoError(t, err)
}

func TestIngest_EmptyFile(t *testing.T) {
	pipeline, _, _ := newTestPipeline(t)

	_, err := pipeline.Ingest(context.Background(), "empty.txt", nil)
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestIngest_UnsupportedFormat(t *testing.T) {
	pipeline, _, _ := newTestPipeline(t)
	ctx := context.Background()

	_, err := pipeline.Ingest(ctx, "image.png", []byte{0x89, 0x50, 0x4e, 0x47})
	assert.ErrorIs(t, err, extract.ErrUnsupportedFormat)

	// Nothing was written.
	files, err := pipeline.ListFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestIngest_EmbeddingFailureWritesNothing(t *testing.T) {
	pipeline, stores, provider := newTestPipeline(t)
	ctx := context.Background()

	provider.GetMockEmbedder().EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("embedding backend down")
	}

	_, err := pipeline.Ingest(ctx, "notes.txt", []byte("some content"))
	require.Error(t, err)

	files, err := pipeline.ListFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)

	found := false
	err = stores.Index.ForEachChunk(ctx, func(chunk *core.Chunk) error {
		found = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIngest_EnrichmentFailureDegrades(t *testing.T) {
	pipeline, stores, provider := newTestPipeline(t)
	ctx := context.Background()

	provider.GetMockGenerator().CompleteFunc = func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("generation backend down")
	}

	file, err := pipeline.Ingest(ctx, "notes.txt", []byte("content that survives enrichment failure"))
	require.NoError(t, err)

	err = stores.Index.ForEachChunk(ctx, func(chunk *core.Chunk) error {
		assert.Equal(t, file.DocID, chunk.Metadata.DocID)
		assert.Empty(t, chunk.Metadata.Keywords)
		assert.Empty(t, chunk.Metadata.Summary)
		assert.NotEmpty(t, chunk.Vector)
		return nil
	})
	require.NoError(t, err)
}

func TestDeleteFile_RemovesBothSides(t *testing.T) {
	pipeline, stores, _ := newTestPipeline(t)
	ctx := context.Background()

	file, err := pipeline.Ingest(ctx, "notes.txt", []byte("content to delete"))
	require.NoError(t, err)

	require.NoError(t, pipeline.DeleteFile(ctx, file.DocID))

	count, err := stores.Index.CountByDocID(ctx, file.DocID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	files, err := pipeline.ListFiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)
}

type brokenDeleteIndex struct {
	storage.VectorIndex
	err error
}

func (b *brokenDeleteIndex) DeleteByDocID(ctx context.Context, docID string) (int, error) {
	return 0, b.err
}

type brokenDeleteRegistry struct {
	storage.FileRegistry
	err error
}

func (b *brokenDeleteRegistry) DeleteFile(ctx context.Context, docID string) error {
	return b.err
}

func TestDeleteFile_IdentifiesFailingSide(t *testing.T) {
	ctx := context.Background()

	t.Run("index failure", func(t *testing.T) {
		stores, err := badger.NewMemoryStores()
		require.NoError(t, err)
		t.Cleanup(func() { stores.Close() })

		index := &brokenDeleteIndex{VectorIndex: stores.Index, err: errors.New("disk full")}
		pipeline, err := NewPipeline(index, stores.Files, mock.NewMockProvider())
		require.NoError(t, err)
		t.Cleanup(pipeline.Release)

		file, err := pipeline.Ingest(ctx, "notes.txt", []byte("content to delete"))
		require.NoError(t, err)

		err = pipeline.DeleteFile(ctx, file.DocID)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrIndexWrite)
		assert.NotErrorIs(t, err, ErrRegistryWrite)
		assert.Contains(t, err.Error(), "disk full")
	})

	t.Run("registry failure", func(t *testing.T) {
		stores, err := badger.NewMemoryStores()
		require.NoError(t, err)
		t.Cleanup(func() { stores.Close() })

		registry := &brokenDeleteRegistry{FileRegistry: stores.Files, err: errors.New("disk full")}
		pipeline, err := NewPipeline(stores.Index, registry, mock.NewMockProvider())
		require.NoError(t, err)
		t.Cleanup(pipeline.Release)

		file, err := pipeline.Ingest(ctx, "notes.txt", []byte("content to delete"))
		require.NoError(t, err)

		err = pipeline.DeleteFile(ctx, file.DocID)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRegistryWrite)
		assert.NotErrorIs(t, err, ErrIndexWrite)
	})
}

func TestDeleteFile_Unknown(t *testing.T) {
	pipeline, _, _ := newTestPipeline(t)

	err := pipeline.DeleteFile(context.Background(), "never-ingested")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestParseKeywords(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{"comma separated", "policy, vacation, leave", []string{"policy", "vacation", "leave"}},
		{"newline separated", "policy\nvacation\nleave", []string{"policy", "vacation", "leave"}},
		{"caps at five", "a, b, c, d, e, f, g", []string{"a", "b", "c", "d", "e"}},
		{"strips bullets", "- policy\n- vacation", []string{"policy", "vacation"}},
		{"empty response", "   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseKeywords(tt.response))
		})
	}
}

func TestSplitter_Deterministic(t *testing.T) {
	s := newSplitter(0, 0)

	first, err := s.split("doc-1", "notes.txt", []string{"some text to split"})
	require.NoError(t, err)
	second, err := s.split("doc-1", "notes.txt", []string{"some text to split"})
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}
