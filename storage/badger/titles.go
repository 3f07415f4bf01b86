package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// TitleStore implements storage.TitleStore for BadgerDB.
type TitleStore struct {
	backend *Backend
}

var _ storage.TitleStore = (*TitleStore)(nil)

// NewTitleStore creates a new TitleStore over the backend.
func NewTitleStore(backend *Backend) storage.TitleStore {
	return &TitleStore{backend: backend}
}

// Close is a no-op; the shared backend owns the database handle.
func (s *TitleStore) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (s *TitleStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.backend.WithTransaction(ctx, fn)
}

// PutTitle stores or replaces the cached title for a conversation.
func (s *TitleStore) PutTitle(ctx context.Context, title *core.ConversationTitle) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeTitleKey(title.ConversationID)
		if err := tx.Set(key, []byte(title.Title)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetTitle retrieves the cached title for a conversation.
func (s *TitleStore) GetTitle(ctx context.Context, conversationID string) (*core.ConversationTitle, error) {
	var result *core.ConversationTitle
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeTitleKey(conversationID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			result = &core.ConversationTitle{
				ConversationID: conversationID,
				Title:          string(val),
			}
			return nil
		})
	}, false)
	return result, err
}

// DeleteTitle removes the cached title. Absent titles are not an error.
func (s *TitleStore) DeleteTitle(ctx context.Context, conversationID string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeTitleKey(conversationID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
