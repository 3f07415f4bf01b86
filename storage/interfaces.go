package storage

import (
	"context"

	"github.com/poiesic/docchat/core"
)

// Store provides common operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// ConversationStore provides operations for conversations and their messages.
type ConversationStore interface {
	Store

	// CreateConversation persists a new conversation record.
	// Returns ErrDuplicateKey if a conversation with the same id exists.
	CreateConversation(ctx context.Context, conv *core.Conversation) error

	// GetConversation retrieves a conversation record by id.
	// Returns ErrNotFound if the conversation doesn't exist.
	GetConversation(ctx context.Context, id string) (*core.Conversation, error)

	// ListConversations returns all conversation records ordered by
	// UpdatedAt descending, most recently active first.
	ListConversations(ctx context.Context) ([]*core.Conversation, error)

	// AppendMessages appends messages to a conversation in one transaction.
	// Ordinals are assigned from the conversation record's NextOrdinal and
	// the conversation's UpdatedAt is advanced. Either every message is
	// written or none are.
	// Returns ErrNotFound if the conversation doesn't exist.
	AppendMessages(ctx context.Context, conversationID string, messages ...*core.Message) ([]*core.Message, error)

	// GetMessages retrieves all messages of a conversation in append order,
	// oldest first. A conversation with no messages yields an empty slice.
	// Returns ErrNotFound if the conversation doesn't exist.
	GetMessages(ctx context.Context, conversationID string) ([]*core.Message, error)

	// GetRecentMessages retrieves the last limit messages of a conversation
	// in append order, oldest of the window first.
	// Returns ErrNotFound if the conversation doesn't exist.
	GetRecentMessages(ctx context.Context, conversationID string, limit int) ([]*core.Message, error)

	// DeleteConversation removes the conversation record, all of its
	// messages, and its cached title in one transaction.
	// Returns ErrNotFound if the conversation doesn't exist.
	DeleteConversation(ctx context.Context, id string) error
}

// TitleStore provides operations for cached conversation titles.
type TitleStore interface {
	Store

	// PutTitle stores or replaces the cached title for a conversation.
	PutTitle(ctx context.Context, title *core.ConversationTitle) error

	// GetTitle retrieves the cached title for a conversation.
	// Returns ErrNotFound if no title has been cached.
	GetTitle(ctx context.Context, conversationID string) (*core.ConversationTitle, error)

	// DeleteTitle removes the cached title for a conversation.
	// Deleting an absent title is not an error.
	DeleteTitle(ctx context.Context, conversationID string) error
}

// VectorIndex provides operations for document chunks and similarity search.
type VectorIndex interface {
	Store

	// UpsertChunks writes chunks into the index in one transaction.
	// Chunk ids are content-derived, so re-ingesting identical content
	// overwrites in place.
	UpsertChunks(ctx context.Context, chunks ...*core.Chunk) error

	// FindSimilar finds chunks similar to the given vector.
	// Returns chunks with similarity >= minSimilarity, up to limit results.
	// Results are ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ChunkMatch, error)

	// DeleteByDocID removes every chunk belonging to the document.
	// Returns the number of chunks removed; zero is not an error.
	DeleteByDocID(ctx context.Context, docID string) (int, error)

	// CountByDocID returns the number of chunks stored for the document.
	CountByDocID(ctx context.Context, docID string) (int, error)

	// ForEachChunk iterates over every chunk in the index.
	// Iteration stops when fn returns an error.
	ForEachChunk(ctx context.Context, fn func(chunk *core.Chunk) error) error
}

// FileRegistry provides operations for the ingested file registry.
type FileRegistry interface {
	Store

	// SaveFile records a successfully ingested file.
	SaveFile(ctx context.Context, file *core.IngestedFile) error

	// GetFile retrieves a registry entry by document id.
	// Returns ErrNotFound if the document was never registered.
	GetFile(ctx context.Context, docID string) (*core.IngestedFile, error)

	// ListFiles returns all registry entries ordered by UploadedAt
	// ascending, ties broken by document id.
	ListFiles(ctx context.Context) ([]*core.IngestedFile, error)

	// DeleteFile removes a registry entry by document id.
	// Returns ErrNotFound if the document was never registered.
	DeleteFile(ctx context.Context, docID string) error
}
