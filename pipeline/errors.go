package pipeline

import (
	"fmt"
	"strings"
)

// ErrorCode classifies pipeline-level failures.
type ErrorCode string

const (
	// ErrCodeConfiguration marks a fatal pre-run configuration problem
	// (unknown chunking tool, malformed chunking config, bad run options).
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"
	// ErrCodeInit marks a failed collection initialization.
	ErrCodeInit ErrorCode = "INIT_FAILED"
	// ErrCodeClean marks a failed full-collection delete; nothing was loaded.
	ErrCodeClean ErrorCode = "CLEAN_FAILED"
	// ErrCodeManifest marks a failed manifest read; deduplication cannot run.
	ErrCodeManifest ErrorCode = "MANIFEST_FAILED"
	// ErrCodeSave marks a run-level save failure. Documents already written
	// remain written; FailedDocs reports the exact set to retry.
	ErrCodeSave ErrorCode = "SAVE_FAILED"
	// ErrCodeLock marks a failed cross-process lock acquisition.
	ErrCodeLock ErrorCode = "LOCK_FAILED"
)

// Error is the pipeline's run-level error. Collaborator errors are wrapped,
// never surfaced as opaque transport failures.
type Error struct {
	Code       ErrorCode
	Stage      Stage
	Collection string
	Message    string
	FailedDocs []string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("pipeline.%s [%s]: %s", e.Stage, e.Collection, e.Message)
	if len(e.FailedDocs) > 0 {
		msg += fmt.Sprintf(" (%d documents failed: %s)", len(e.FailedDocs), strings.Join(e.FailedDocs, ", "))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newConfigurationError(message string, err error) *Error {
	return &Error{
		Code:    ErrCodeConfiguration,
		Stage:   StageChunk,
		Message: message,
		Err:     err,
	}
}

func newInitError(collection string, err error) *Error {
	return &Error{
		Code:       ErrCodeInit,
		Stage:      StageClean,
		Collection: collection,
		Message:    "failed to initialize collection",
		Err:        err,
	}
}

func newCleanError(collection string, err error) *Error {
	return &Error{
		Code:       ErrCodeClean,
		Stage:      StageClean,
		Collection: collection,
		Message:    "failed to clean collection before load",
		Err:        err,
	}
}

func newManifestError(collection string, err error) *Error {
	return &Error{
		Code:       ErrCodeManifest,
		Stage:      StageDedup,
		Collection: collection,
		Message:    "failed to read collection manifest",
		Err:        err,
	}
}

func newLockError(collection string, err error) *Error {
	return &Error{
		Code:       ErrCodeLock,
		Stage:      StageClean,
		Collection: collection,
		Message:    "failed to acquire collection lock",
		Err:        err,
	}
}

func newSaveError(collection string, failed []string, err error) *Error {
	return &Error{
		Code:       ErrCodeSave,
		Stage:      StageSave,
		Collection: collection,
		Message:    "failed to save chunks",
		FailedDocs: failed,
		Err:        err,
	}
}

// IsConfiguration reports whether err is a fatal pre-run configuration error.
func IsConfiguration(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Code == ErrCodeConfiguration
	}
	return false
}
