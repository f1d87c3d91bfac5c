package document

import (
	"strconv"
	"time"
)

// MarkerNewer reports whether marker a is strictly newer than marker b.
//
// Markers are compared numerically when both parse as numbers and
// chronologically when both parse as RFC 3339 timestamps. Opaque revision
// tokens have no ordering, so any difference counts as newer: the pipeline
// fails open toward re-indexing rather than silently missing updates.
func MarkerNewer(a, b string) bool {
	if a == b {
		return false
	}

	if fa, err := strconv.ParseFloat(a, 64); err == nil {
		if fb, err := strconv.ParseFloat(b, 64); err == nil {
			return fa > fb
		}
	}

	if ta, err := time.Parse(time.RFC3339, a); err == nil {
		if tb, err := time.Parse(time.RFC3339, b); err == nil {
			return ta.After(tb)
		}
	}

	return true
}
