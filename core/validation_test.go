package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateMessage(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name    string
		message *Message
		wantErr error
	}{
		{
			name:    "valid user message",
			message: &Message{Role: RoleUser, Text: "hello", CreatedAt: now},
		},
		{
			name:    "valid assistant message",
			message: &Message{Role: RoleAssistant, Text: "hi there", CreatedAt: now},
		},
		{
			name:    "nil message",
			message: nil,
			wantErr: ErrInvalidMessage,
		},
		{
			name:    "empty text",
			message: &Message{Role: RoleUser, Text: "", CreatedAt: now},
			wantErr: ErrEmptyText,
		},
		{
			name:    "invalid role",
			message: &Message{Role: Role(99), Text: "hello", CreatedAt: now},
			wantErr: ErrInvalidRole,
		},
		{
			name:    "future timestamp",
			message: &Message{Role: RoleUser, Text: "hello", CreatedAt: now.Add(time.Hour)},
			wantErr: ErrInvalidTimestamp,
		},
		{
			name:    "zero timestamp allowed",
			message: &Message{Role: RoleUser, Text: "hello"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessage(tt.message)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		chunk   *Chunk
		wantErr error
	}{
		{
			name: "valid chunk",
			chunk: &Chunk{
				ID:       ChunkID("doc-1", 0, "some text"),
				Text:     "some text",
				Metadata: ChunkMetadata{DocID: "doc-1", Source: "policy.txt"},
			},
		},
		{
			name: "chunk without annotations is valid",
			chunk: &Chunk{
				Text:     "unannotated",
				Metadata: ChunkMetadata{DocID: "doc-1"},
			},
		},
		{
			name:    "nil chunk",
			chunk:   nil,
			wantErr: ErrInvalidChunk,
		},
		{
			name:    "empty text",
			chunk:   &Chunk{Metadata: ChunkMetadata{DocID: "doc-1"}},
			wantErr: ErrEmptyText,
		},
		{
			name:    "missing doc id",
			chunk:   &Chunk{Text: "some text"},
			wantErr: ErrEmptyDocID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateIngestedFile(t *testing.T) {
	valid := &IngestedFile{DocID: "doc-1", FileName: "handbook.pdf", UploadedAt: time.Now().UTC()}
	assert.NoError(t, ValidateIngestedFile(valid))

	assert.ErrorIs(t, ValidateIngestedFile(nil), ErrInvalidFile)
	assert.ErrorIs(t, ValidateIngestedFile(&IngestedFile{FileName: "x"}), ErrEmptyDocID)
	assert.ErrorIs(t, ValidateIngestedFile(&IngestedFile{DocID: "doc-1"}), ErrEmptyFileName)
}

func TestChunkID(t *testing.T) {
	a := ChunkID("doc-1", 0, "alpha")
	b := ChunkID("doc-1", 0, "alpha")
	assert.Equal(t, a, b, "identical content must produce identical ids")

	assert.NotEqual(t, a, ChunkID("doc-1", 1, "alpha"))
	assert.NotEqual(t, a, ChunkID("doc-2", 0, "alpha"))
	assert.NotEqual(t, a, ChunkID("doc-1", 0, "beta"))
	assert.Len(t, a, 32)
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "user", RoleUser.String())
	assert.Equal(t, "assistant", RoleAssistant.String())
}
