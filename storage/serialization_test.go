package storage

import (
	"testing"
	"time"

	"github.com/poiesic/docchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalConversation(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	conv := &core.Conversation{
		ID:          "11111111-2222-3333-4444-555555555555",
		CreatedAt:   now.Add(-time.Hour),
		UpdatedAt:   now,
		NextOrdinal: 7,
	}

	data := MarshalConversation(conv)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalConversation(data)
	require.NoError(t, err)
	assert.Equal(t, conv, decoded)
}

func TestMarshalUnmarshalMessage(t *testing.T) {
	msg := &core.Message{
		Ordinal:        3,
		ConversationID: "11111111-2222-3333-4444-555555555555",
		Role:           core.RoleAssistant,
		Text:           "the answer is in section four",
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}

	decoded, err := UnmarshalMessage(MarshalMessage(msg))
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)
}

func TestMarshalUnmarshalChunk(t *testing.T) {
	chunk := &core.Chunk{
		ID:     core.ChunkID("doc-1", 0, "chunk text"),
		Text:   "chunk text",
		Vector: []float32{0.25, -0.5, 0.75},
		Metadata: core.ChunkMetadata{
			DocID:    "doc-1",
			Source:   "handbook.pdf",
			Keywords: []string{"onboarding", "policy"},
			Summary:  "Policies for new hires.",
		},
	}

	decoded, err := UnmarshalChunk(MarshalChunk(chunk))
	require.NoError(t, err)
	assert.Equal(t, chunk, decoded)
}

func TestMarshalUnmarshalChunk_EmptyEnrichment(t *testing.T) {
	chunk := &core.Chunk{
		ID:     core.ChunkID("doc-2", 1, "bare"),
		Text:   "bare",
		Vector: []float32{1},
		Metadata: core.ChunkMetadata{
			DocID:  "doc-2",
			Source: "notes.txt",
		},
	}

	decoded, err := UnmarshalChunk(MarshalChunk(chunk))
	require.NoError(t, err)
	assert.Empty(t, decoded.Metadata.Keywords)
	assert.Empty(t, decoded.Metadata.Summary)
	assert.Equal(t, chunk.Text, decoded.Text)
}

func TestMarshalUnmarshalIngestedFile(t *testing.T) {
	file := &core.IngestedFile{
		DocID:      "doc-1",
		FileName:   "handbook.pdf",
		UploadedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	decoded, err := UnmarshalIngestedFile(MarshalIngestedFile(file))
	require.NoError(t, err)
	assert.Equal(t, file, decoded)
}

func TestUnmarshalConversation_Truncated(t *testing.T) {
	conv := &core.Conversation{
		ID:          "11111111-2222-3333-4444-555555555555",
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
		NextOrdinal: 1,
	}
	data := MarshalConversation(conv)

	_, err := UnmarshalConversation(data[:len(data)/2])
	assert.Error(t, err)
}

func TestUnmarshalChunk_Garbage(t *testing.T) {
	_, err := UnmarshalChunk([]byte{0xff, 0xff, 0xff, 0xff})
	assert.Error(t, err)
}
