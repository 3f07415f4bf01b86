package core

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Role identifies the author of a conversation message.
type Role int

const (
	// RoleUser represents the human side of a conversation.
	RoleUser Role = iota + 1
	// RoleAssistant represents the generation capability's side.
	RoleAssistant
)

// String returns the wire/display form of the role.
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Message is a single turn entry in a conversation.
// Messages are immutable once appended; ordering is by Ordinal,
// which is assigned from the conversation record at append time.
type Message struct {
	Ordinal        uint64
	ConversationID string
	Role           Role
	Text           string
	CreatedAt      time.Time
}

// Conversation is the durable record for one conversation.
// UpdatedAt is the explicit last-activity timestamp used for recency
// ordering; NextOrdinal is the ordinal the next appended message receives.
type Conversation struct {
	ID          string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	NextOrdinal uint64
}

// ChunkMetadata carries provenance and derived annotations for a chunk.
// Keywords and Summary may be empty when enrichment degraded.
type ChunkMetadata struct {
	DocID    string
	Source   string
	Keywords []string
	Summary  string
}

// Chunk is a bounded span of document text stored in the vector index.
// Chunks are never mutated after creation; a file is superseded only by
// full re-ingestion.
type Chunk struct {
	ID       string
	Text     string
	Vector   []float32
	Metadata ChunkMetadata
}

// ChunkMatch is a chunk returned from similarity search with its score.
type ChunkMatch struct {
	Chunk *Chunk
	Score float32
}

// IngestedFile is the registry row for one successfully ingested file.
type IngestedFile struct {
	DocID      string
	FileName   string
	UploadedAt time.Time
}

// ConversationTitle pairs a conversation id with its derived title.
type ConversationTitle struct {
	ConversationID string
	Title          string
}

// ChunkID generates a deterministic chunk identifier from the document id,
// the chunk's position within the document, and its text, using BLAKE2b
// hashing. Identical content always produces the identical id, which makes
// index upserts idempotent across re-runs of the same ingestion.
func ChunkID(docID string, ordinal int, text string) string {
	h, _ := blake2b.New(16, nil)
	fmt.Fprintf(h, "%s:%d:", docID, ordinal)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
