package document

// Kind distinguishes top-level documents from content attached to them.
type Kind string

const (
	// KindBase is a top-level unit fetched directly from a source system.
	KindBase Kind = "base"
	// KindDependent is content attached to or referenced by a base document.
	KindDependent Kind = "dependent"
)

// Document is the unit flowing through the indexing pipeline. Loaders create
// documents as lightweight descriptors; ContentType and RawContent stay unset
// until the content resolution stage runs, and Chunks until the chunking stage.
type Document struct {
	// ID is unique within the source system and stable across runs.
	ID string
	// Kind is base or dependent.
	Kind Kind
	// ParentID carries a dependent document's back-reference to its owning
	// base document. Empty for base documents. This is a lookup relation,
	// never an ownership edge.
	ParentID string
	// UpdatedOn is a comparable change marker (timestamp or revision token)
	// used solely for deduplication. Empty means "always changed".
	UpdatedOn string
	// ContentType is a file-extension-like tag (".md", ".pdf"). Unset until
	// content resolution.
	ContentType string
	// RawContent is the opaque byte payload. Unset until content resolution.
	RawContent []byte
	// Metadata carries source-specific attributes.
	Metadata map[string]interface{}
	// Chunks is produced by the chunking stage, in order.
	Chunks []Chunk
}

// Chunk is a text fragment plus chunk-local metadata produced by splitting a
// document's content.
type Chunk struct {
	Text     string
	Metadata map[string]interface{}
}

// IsBase reports whether the document is a top-level unit.
func (d *Document) IsBase() bool {
	return d.Kind == KindBase
}

// CopyMetadata returns a shallow copy of the document's metadata, never nil.
func (d *Document) CopyMetadata() map[string]interface{} {
	return copyMetadata(d.Metadata)
}

func copyMetadata(metadata map[string]interface{}) map[string]interface{} {
	copied := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		copied[k] = v
	}
	return copied
}
