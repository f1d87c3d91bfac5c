package chunking

import "fmt"

// ConfigError represents a chunking configuration problem. It is always
// surfaced before any document-level work begins.
type ConfigError struct {
	Op      string
	Tool    string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	msg := e.Message
	if e.Tool != "" {
		msg = fmt.Sprintf("%s (tool: %s)", msg, e.Tool)
	}
	if e.Err != nil {
		return fmt.Sprintf("chunking.%s: %s: %v", e.Op, msg, e.Err)
	}
	return fmt.Sprintf("chunking.%s: %s", e.Op, msg)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
