package source

import "fmt"

// SourceError represents errors that can occur while loading documents or
// resolving their content.
type SourceError struct {
	Source  string
	Op      string
	Err     error
	Code    string
	Message string
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source.%s [%s]: %s", e.Op, e.Source, e.Message)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeNotFound          = "NotFound"
	ErrCodeInvalidSource     = "InvalidSource"
	ErrCodeAccessDenied      = "AccessDenied"
	ErrCodeInvalidFormat     = "InvalidFormat"
	ErrCodeRateLimitExceeded = "RateLimitExceeded"
	ErrCodeInternal          = "Internal"
)
