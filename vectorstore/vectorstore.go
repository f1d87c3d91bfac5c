package vectorstore

import (
	"context"

	"github.com/ProjectAlita/indexpipe/embedding"
)

// Filter represents a query filter
type Filter map[string]interface{}

// Manifest is the store's recorded mapping of document id to the change
// marker it carried when last indexed. The deduplication stage compares
// freshly loaded markers against it.
type Manifest map[string]string

// Metadata keys the store relies on to rebuild a collection's manifest and
// to scope per-document deletes. The pipeline stamps them onto every chunk.
const (
	MetadataDocID     = "doc_id"
	MetadataParentID  = "parent_id"
	MetadataUpdatedOn = "updated_on"
)

// Document is a stored chunk: text, metadata, and a similarity score on the
// read path.
type Document struct {
	ID          string                 `json:"id"`
	PageContent string                 `json:"page_content"`
	Metadata    map[string]interface{} `json:"metadata"`
	Score       float32                `json:"score"`
}

// Store interface defines the operations that any vector database adapter
// must implement. Every operation is scoped to a named collection.
type Store interface {
	// EnsureCollection creates the collection if needed, dropping any prior
	// contents when forceRecreate is true.
	EnsureCollection(ctx context.Context, collection string, forceRecreate bool) error

	// Manifest returns the recorded id-to-marker mapping for the collection.
	// A missing collection yields an empty manifest, not an error.
	Manifest(ctx context.Context, collection string) (Manifest, error)

	// Upsert adds documents and their vectors to the collection.
	Upsert(ctx context.Context, collection string, docs []Document, vectors [][]float32) error

	// Delete removes documents matching the filter from the collection.
	Delete(ctx context.Context, collection string, filter Filter) error

	// DeleteAll removes every document in the collection.
	DeleteAll(ctx context.Context, collection string) error

	// SimilaritySearch performs a similarity search using the provided vector
	SimilaritySearch(ctx context.Context, collection string, vector []float32, limit int, filter Filter) ([]Document, error)
}

// VectorStore is the main struct that combines the database adapter and embedder
type VectorStore struct {
	store    Store
	embedder embedding.Embedder
	opts     *Options
}

// New creates a new VectorStore instance
func New(store Store, embedder embedding.Embedder, opts ...Option) *VectorStore {
	options := &Options{
		ScoreThreshold: 0.0,
	}

	for _, opt := range opts {
		opt(options)
	}

	return &VectorStore{
		store:    store,
		embedder: embedder,
		opts:     options,
	}
}

// EnsureCollection creates the collection if needed, dropping prior contents
// when forceRecreate is true.
func (vs *VectorStore) EnsureCollection(ctx context.Context, collection string, forceRecreate bool) error {
	return vs.store.EnsureCollection(ctx, collection, forceRecreate)
}

// Manifest returns the collection's recorded id-to-marker mapping.
func (vs *VectorStore) Manifest(ctx context.Context, collection string) (Manifest, error) {
	manifest, err := vs.store.Manifest(ctx, collection)
	if err != nil {
		return nil, NewManifestFailedError(collection, err)
	}
	return manifest, nil
}

// Upsert embeds the documents and writes them to the collection.
func (vs *VectorStore) Upsert(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.PageContent
	}

	vectors, err := vs.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return NewEmbeddingFailedError(collection, err)
	}

	return vs.store.Upsert(ctx, collection, docs, vectors)
}

// Delete removes documents matching the filter from the collection.
func (vs *VectorStore) Delete(ctx context.Context, collection string, filter Filter) error {
	return vs.store.Delete(ctx, collection, filter)
}

// DeleteAll removes every document in the collection.
func (vs *VectorStore) DeleteAll(ctx context.Context, collection string) error {
	return vs.store.DeleteAll(ctx, collection)
}

// SimilaritySearch performs a similarity search using the query text
func (vs *VectorStore) SimilaritySearch(ctx context.Context, collection string, query string, limit int, filter Filter) ([]Document, error) {
	vector, err := vs.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, NewEmbeddingFailedError(collection, err)
	}

	// Merge default filters with query filters
	mergedFilter := make(Filter)
	for k, v := range vs.opts.Filters {
		mergedFilter[k] = v
	}
	for k, v := range filter {
		mergedFilter[k] = v
	}

	docs, err := vs.store.SimilaritySearch(ctx, collection, vector, limit, mergedFilter)
	if err != nil {
		return nil, err
	}

	// Apply score threshold
	filtered := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if vs.opts.ScoreThreshold <= 0 || doc.Score >= vs.opts.ScoreThreshold {
			filtered = append(filtered, doc)
		}
	}

	return filtered, nil
}
