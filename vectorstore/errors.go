package vectorstore

import (
	"fmt"
)

// ErrorCode represents specific error types in vector store operations
type ErrorCode string

const (
	ErrCodeCollectionNotFound ErrorCode = "COLLECTION_NOT_FOUND"
	ErrCodeInitFailed         ErrorCode = "INIT_FAILED"
	ErrCodeManifestFailed     ErrorCode = "MANIFEST_FAILED"
	ErrCodeUpsertFailed       ErrorCode = "UPSERT_FAILED"
	ErrCodeSearchFailed       ErrorCode = "SEARCH_FAILED"
	ErrCodeDeleteFailed       ErrorCode = "DELETE_FAILED"
	ErrCodeInvalidDimensions  ErrorCode = "INVALID_DIMENSIONS"
	ErrCodeInvalidFilter      ErrorCode = "INVALID_FILTER"
	ErrCodeEmbeddingFailed    ErrorCode = "EMBEDDING_FAILED"
)

// VectorStoreError represents an error that occurred in vector store operations
type VectorStoreError struct {
	Code       ErrorCode
	Op         string
	Collection string
	Message    string
	Err        error
}

func (e *VectorStoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (collection: %s, operation: %s) - %v",
			e.Code, e.Message, e.Collection, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s (collection: %s, operation: %s)",
		e.Code, e.Message, e.Collection, e.Op)
}

func (e *VectorStoreError) Unwrap() error {
	return e.Err
}

// Helper functions to create errors
func NewCollectionNotFoundError(collection string, err error) error {
	return &VectorStoreError{
		Code:       ErrCodeCollectionNotFound,
		Op:         "Access",
		Collection: collection,
		Message:    "collection not found",
		Err:        err,
	}
}

func NewInitFailedError(collection string, err error) error {
	return &VectorStoreError{
		Code:       ErrCodeInitFailed,
		Op:         "EnsureCollection",
		Collection: collection,
		Message:    "failed to initialize collection",
		Err:        err,
	}
}

func NewManifestFailedError(collection string, err error) error {
	return &VectorStoreError{
		Code:       ErrCodeManifestFailed,
		Op:         "Manifest",
		Collection: collection,
		Message:    "failed to read collection manifest",
		Err:        err,
	}
}

func NewUpsertFailedError(collection string, err error) error {
	return &VectorStoreError{
		Code:       ErrCodeUpsertFailed,
		Op:         "Upsert",
		Collection: collection,
		Message:    "failed to upsert documents",
		Err:        err,
	}
}

func NewSearchFailedError(collection string, err error) error {
	return &VectorStoreError{
		Code:       ErrCodeSearchFailed,
		Op:         "SimilaritySearch",
		Collection: collection,
		Message:    "failed to perform similarity search",
		Err:        err,
	}
}

func NewDeleteFailedError(collection string, err error) error {
	return &VectorStoreError{
		Code:       ErrCodeDeleteFailed,
		Op:         "Delete",
		Collection: collection,
		Message:    "failed to delete documents",
		Err:        err,
	}
}

func NewInvalidDimensionsError(collection string, expected, got int) error {
	return &VectorStoreError{
		Code:       ErrCodeInvalidDimensions,
		Op:         "Upsert",
		Collection: collection,
		Message:    fmt.Sprintf("invalid vector dimensions: expected %d, got %d", expected, got),
	}
}

func NewInvalidFilterError(collection string, details string) error {
	return &VectorStoreError{
		Code:       ErrCodeInvalidFilter,
		Op:         "Filter",
		Collection: collection,
		Message:    fmt.Sprintf("invalid filter: %s", details),
	}
}

func NewEmbeddingFailedError(collection string, err error) error {
	return &VectorStoreError{
		Code:       ErrCodeEmbeddingFailed,
		Op:         "Embedding",
		Collection: collection,
		Message:    "failed to generate embeddings",
		Err:        err,
	}
}
