package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrVectorIndexRequired is returned when a vector index is not provided.
	ErrVectorIndexRequired = errors.New("vector index required")

	// ErrFileRegistryRequired is returned when a file registry is not provided.
	ErrFileRegistryRequired = errors.New("file registry required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrEmptyFile is returned when an uploaded file has no content.
	ErrEmptyFile = errors.New("file is empty")

	// ErrIndexWrite labels a vector index failure during a delete, so a
	// combined error still tells the operator which side to reconcile.
	ErrIndexWrite = errors.New("vector index delete failed")

	// ErrRegistryWrite labels a file registry failure during a delete.
	ErrRegistryWrite = errors.New("file registry delete failed")
)

// ReconcileError reports a registry write failure after the document's
// chunks could not be rolled back out of the vector index. The document
// identified by DocID is searchable but absent from the file listing until
// it is re-ingested or deleted.
type ReconcileError struct {
	DocID    string
	SaveErr  error
	CleanErr error
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("registry write failed for document %s and cleanup also failed: %v (cleanup: %v)", e.DocID, e.SaveErr, e.CleanErr)
}

func (e *ReconcileError) Unwrap() error {
	return e.SaveErr
}
