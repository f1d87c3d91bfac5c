package pipeline

import "time"

// Stage identifies one step of the fixed indexing sequence.
type Stage string

const (
	StageClean        Stage = "clean"
	StageLoad         Stage = "load"
	StageDedup        Stage = "dedup"
	StageResolve      Stage = "resolve"
	StageDependencies Stage = "dependencies"
	StageChunk        Stage = "chunk"
	StageSanitize     Stage = "sanitize"
	StageSave         Stage = "save"
)

// Failure records a per-document failure: which document, at which stage, why.
type Failure struct {
	DocID string
	Stage Stage
	Err   error
}

// Result reports the outcome of one indexing run.
type Result struct {
	// RunID uniquely identifies this run.
	RunID string
	// Collection is the target collection suffix.
	Collection string
	// Cleaned reports whether a full collection delete preceded the run.
	Cleaned bool
	// BaseSeen is the number of base documents yielded by the source loader.
	BaseSeen int
	// DuplicatesSkipped is the number of base documents dropped by
	// deduplication.
	DuplicatesSkipped int
	// DependentsLoaded is the number of dependent documents fetched for
	// surviving base documents.
	DependentsLoaded int
	// ChunksWritten is the number of chunks upserted into the collection.
	ChunksWritten int
	// Failures lists every per-document failure with its stage and reason.
	Failures []Failure
	// Duration is the total run time.
	Duration time.Duration
}

// FailedByStage returns the failures recorded for a given stage.
func (r *Result) FailedByStage(stage Stage) []Failure {
	var out []Failure
	for _, f := range r.Failures {
		if f.Stage == stage {
			out = append(out, f)
		}
	}
	return out
}

// FailedIDs returns the ids of all documents that failed at any stage, in
// recording order. Callers use it to retry deterministically.
func (r *Result) FailedIDs() []string {
	ids := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		ids = append(ids, f.DocID)
	}
	return ids
}
