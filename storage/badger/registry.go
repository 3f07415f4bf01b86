package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// FileRegistry implements storage.FileRegistry for BadgerDB.
type FileRegistry struct {
	backend *Backend
}

var _ storage.FileRegistry = (*FileRegistry)(nil)

// NewFileRegistry creates a new FileRegistry over the backend.
func NewFileRegistry(backend *Backend) storage.FileRegistry {
	return &FileRegistry{backend: backend}
}

// Close is a no-op; the shared backend owns the database handle.
func (s *FileRegistry) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (s *FileRegistry) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.backend.WithTransaction(ctx, fn)
}

// SaveFile records a successfully ingested file.
func (s *FileRegistry) SaveFile(ctx context.Context, file *core.IngestedFile) error {
	if file.UploadedAt.IsZero() {
		file.UploadedAt = time.Now().UTC()
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeFileRecordKey(file.DocID)
		if err := tx.Set(key, storage.MarshalIngestedFile(file)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetFile retrieves a registry entry by document id.
func (s *FileRegistry) GetFile(ctx context.Context, docID string) (*core.IngestedFile, error) {
	var result *core.IngestedFile
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeFileRecordKey(docID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = storage.UnmarshalIngestedFile(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}

// ListFiles returns all registry entries ordered by UploadedAt ascending,
// ties broken by document id.
func (s *FileRegistry) ListFiles(ctx context.Context) ([]*core.IngestedFile, error) {
	var results []*core.IngestedFile
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(fileRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var file *core.IngestedFile
			err := iter.Item().Value(func(val []byte) error {
				var err error
				file, err = storage.UnmarshalIngestedFile(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, file)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.IngestedFile) int {
		if a.UploadedAt.Before(b.UploadedAt) {
			return -1
		}
		if a.UploadedAt.After(b.UploadedAt) {
			return 1
		}
		if a.DocID < b.DocID {
			return -1
		}
		if a.DocID > b.DocID {
			return 1
		}
		return 0
	})

	return results, nil
}

// DeleteFile removes a registry entry by document id.
func (s *FileRegistry) DeleteFile(ctx context.Context, docID string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeFileRecordKey(docID)
		if _, err := tx.Get(key); err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
