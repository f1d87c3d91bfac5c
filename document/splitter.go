package document

// Splitter interface defines methods for splitting text into chunks
type Splitter interface {
	SplitText(text string) ([]string, error)
}

// SplitIntoChunks splits the document's raw content with the given splitter
// and returns the resulting chunks, each carrying a copy of the document's
// metadata plus its position. Empty content yields zero chunks without error.
func SplitIntoChunks(splitter Splitter, doc *Document) ([]Chunk, error) {
	if len(doc.RawContent) == 0 {
		return nil, nil
	}

	texts, err := splitter.SplitText(string(doc.RawContent))
	if err != nil {
		return nil, &SplitterError{
			Op:      "split_into_chunks",
			Message: "failed to split document " + doc.ID,
			Err:     err,
		}
	}

	chunks := make([]Chunk, 0, len(texts))
	for i, text := range texts {
		meta := copyMetadata(doc.Metadata)
		meta["chunk_index"] = i
		chunks = append(chunks, Chunk{Text: text, Metadata: meta})
	}
	return chunks, nil
}
