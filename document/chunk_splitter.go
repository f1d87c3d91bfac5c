package document

import "strings"

// DefaultChunkSize is used when a CharacterSplitter is built without an
// explicit chunk size.
const DefaultChunkSize = 1000

// CharacterSplitter splits text on a separator and packs the pieces into
// chunks of at most ChunkSize characters with ChunkOverlap characters of
// carry-over between consecutive chunks.
type CharacterSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separator    string
}

func NewCharacterSplitter(chunkSize int, chunkOverlap int, separator string) *CharacterSplitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if separator == "" {
		separator = " "
	}

	return &CharacterSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separator:    separator,
	}
}

func (cs *CharacterSplitter) SplitText(text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}

	parts := strings.Split(text, cs.Separator)
	var chunks []string
	current := strings.Builder{}

	for i := 0; i < len(parts); i++ {
		if current.Len()+len(parts[i])+1 > cs.ChunkSize {
			if current.Len() > 0 {
				chunks = append(chunks, strings.TrimSpace(current.String()))

				if cs.ChunkOverlap > 0 {
					overlap := current.String()
					if len(overlap) > cs.ChunkOverlap {
						overlap = overlap[len(overlap)-cs.ChunkOverlap:]
					}
					current.Reset()
					current.WriteString(overlap)
				} else {
					current.Reset()
				}
			}
		}

		if current.Len() > 0 {
			current.WriteString(cs.Separator)
		}
		current.WriteString(parts[i])
	}

	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}

	return chunks, nil
}
