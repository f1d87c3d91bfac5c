package source

import (
	"context"

	"github.com/ProjectAlita/indexpipe/document"
)

// Loader yields base documents from an originating system as lightweight
// descriptors: id, change marker, and metadata only. Heavy content is fetched
// later, and only for documents that survive deduplication.
type Loader interface {
	LoadBase(ctx context.Context, opts ...Option) ([]document.Document, error)
}

// ContentResolver fills in a document's content type and raw bytes. It is the
// per-toolkit hook for the resource-intensive fetch and is never invoked for
// duplicates.
type ContentResolver interface {
	ResolveContent(ctx context.Context, doc *document.Document) (contentType string, raw []byte, err error)
}

// DependencyLoader yields the documents attached to or referenced by a base
// document (attachments, sub-pages, linked files). Implementations return
// descriptors scoped to the given base document; dependents of bases skipped
// by deduplication are never requested.
type DependencyLoader interface {
	LoadDependencies(ctx context.Context, base *document.Document) ([]document.Document, error)
}
