package pipeline

import (
	"log/slog"

	"github.com/ProjectAlita/indexpipe/document"
	"github.com/ProjectAlita/indexpipe/vectorstore"
)

// Dedupe filters freshly loaded base documents against the collection's
// recorded manifest. A document survives if and only if the manifest has no
// entry for its id, its marker is strictly newer than the recorded one, or it
// carries no marker at all (always treated as changed). Dropped documents
// leave the run entirely; their dependents are never fetched.
//
// The returned set never contains two documents with the same id: repeated
// ids within one load keep the first occurrence only.
func Dedupe(docs []document.Document, manifest vectorstore.Manifest, logger *slog.Logger) (survivors []document.Document, skipped int) {
	if logger == nil {
		logger = slog.Default()
	}

	seen := make(map[string]struct{}, len(docs))
	survivors = make([]document.Document, 0, len(docs))

	for _, doc := range docs {
		if _, dup := seen[doc.ID]; dup {
			logger.Warn("duplicate document id in load, keeping first occurrence",
				slog.String("doc_id", doc.ID))
			skipped++
			continue
		}
		seen[doc.ID] = struct{}{}

		recorded, ok := manifest[doc.ID]
		if !ok || doc.UpdatedOn == "" || document.MarkerNewer(doc.UpdatedOn, recorded) {
			survivors = append(survivors, doc)
			continue
		}
		skipped++
	}

	return survivors, skipped
}
