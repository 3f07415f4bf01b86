package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// ConversationStore implements storage.ConversationStore for BadgerDB.
type ConversationStore struct {
	backend *Backend
}

var _ storage.ConversationStore = (*ConversationStore)(nil)

// NewConversationStore creates a new ConversationStore over the backend.
func NewConversationStore(backend *Backend) storage.ConversationStore {
	return &ConversationStore{backend: backend}
}

// Close is a no-op; the shared backend owns the database handle.
func (s *ConversationStore) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (s *ConversationStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.backend.WithTransaction(ctx, fn)
}

// CreateConversation persists a new conversation record.
func (s *ConversationStore) CreateConversation(ctx context.Context, conv *core.Conversation) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeConversationKey(conv.ID)

		existing, err := readConversation(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return storage.ErrDuplicateKey
		}

		now := time.Now().UTC()
		if conv.CreatedAt.IsZero() {
			conv.CreatedAt = now
		}
		if conv.UpdatedAt.IsZero() {
			conv.UpdatedAt = conv.CreatedAt
		}

		if err := tx.Set(key, storage.MarshalConversation(conv)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetConversation retrieves a conversation record by id.
func (s *ConversationStore) GetConversation(ctx context.Context, id string) (*core.Conversation, error) {
	var result *core.Conversation
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readConversation(tx, makeConversationKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListConversations returns all conversation records ordered by UpdatedAt
// descending. Ties are broken by id so the ordering is stable.
func (s *ConversationStore) ListConversations(ctx context.Context) ([]*core.Conversation, error) {
	var results []*core.Conversation
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(conversationPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var conv *core.Conversation
			err := iter.Item().Value(func(val []byte) error {
				var err error
				conv, err = storage.UnmarshalConversation(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, conv)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.Conversation) int {
		if a.UpdatedAt.After(b.UpdatedAt) {
			return -1
		}
		if a.UpdatedAt.Before(b.UpdatedAt) {
			return 1
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})

	return results, nil
}

// AppendMessages appends messages to a conversation in one transaction.
// Ordinals come from the conversation record, which also tracks UpdatedAt,
// so concurrent appends to the same conversation serialize on the record key.
func (s *ConversationStore) AppendMessages(ctx context.Context, conversationID string, messages ...*core.Message) ([]*core.Message, error) {
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		convKey := makeConversationKey(conversationID)
		conv, err := readConversation(tx, convKey)
		if err != nil {
			return err
		}
		if conv == nil {
			return storage.ErrNotFound
		}

		now := time.Now().UTC()
		for _, msg := range messages {
			msg.Ordinal = conv.NextOrdinal
			msg.ConversationID = conversationID
			if msg.CreatedAt.IsZero() {
				msg.CreatedAt = now
			}
			conv.NextOrdinal++

			key := makeMessageKey(conversationID, msg.Ordinal)
			if err := tx.Set(key, storage.MarshalMessage(msg)); err != nil {
				return err
			}
		}

		conv.UpdatedAt = now
		if err := tx.Set(convKey, storage.MarshalConversation(conv)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return messages, nil
}

// GetMessages retrieves all messages of a conversation, oldest first.
func (s *ConversationStore) GetMessages(ctx context.Context, conversationID string) ([]*core.Message, error) {
	var results []*core.Message
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		conv, err := readConversation(tx, makeConversationKey(conversationID))
		if err != nil {
			return err
		}
		if conv == nil {
			return storage.ErrNotFound
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeMessagePrefix(conversationID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var msg *core.Message
			err := iter.Item().Value(func(val []byte) error {
				var err error
				msg, err = storage.UnmarshalMessage(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, msg)
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetRecentMessages retrieves the last limit messages, oldest of the window
// first. Uses a reverse iteration over the ordinal-ordered keys.
func (s *ConversationStore) GetRecentMessages(ctx context.Context, conversationID string, limit int) ([]*core.Message, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.Message
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		conv, err := readConversation(tx, makeConversationKey(conversationID))
		if err != nil {
			return err
		}
		if conv == nil {
			return storage.ErrNotFound
		}

		prefix := makeMessagePrefix(conversationID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek past the highest possible ordinal so the reverse iterator
		// lands on the newest message.
		seekKey := append(slices.Clone(prefix), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)

		for iter.Seek(seekKey); iter.Valid() && len(results) < limit; iter.Next() {
			var msg *core.Message
			err := iter.Item().Value(func(val []byte) error {
				var err error
				msg, err = storage.UnmarshalMessage(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, msg)
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	// Reverse iteration yields newest first; callers expect append order.
	slices.Reverse(results)
	return results, nil
}

// DeleteConversation removes the conversation record, its messages, and its
// cached title in one transaction.
func (s *ConversationStore) DeleteConversation(ctx context.Context, id string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		convKey := makeConversationKey(id)
		conv, err := readConversation(tx, convKey)
		if err != nil {
			return err
		}
		if conv == nil {
			return storage.ErrNotFound
		}

		// Collect message keys first; deleting under an open iterator is
		// undefined in badger.
		var msgKeys [][]byte
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeMessagePrefix(id)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			msgKeys = append(msgKeys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range msgKeys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}

		if err := tx.Delete(makeTitleKey(id)); err != nil {
			return err
		}
		if err := tx.Delete(convKey); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readConversation reads a conversation record from the transaction.
// Returns nil without error when the key does not exist.
func readConversation(tx *badger.Txn, key []byte) (*core.Conversation, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var conv *core.Conversation
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		conv, unmarshalErr = storage.UnmarshalConversation(val)
		return unmarshalErr
	})
	return conv, err
}
