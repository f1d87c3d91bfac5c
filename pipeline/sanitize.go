package pipeline

import (
	"strings"
)

// TruncationMarker is appended to metadata values cut down to the configured
// size ceiling, so callers can detect that truncation occurred.
const TruncationMarker = "...[truncated]"

// DefaultMaxValueBytes bounds metadata value size to limit index bloat.
const DefaultMaxValueBytes = 8192

// DefaultDenylist holds metadata keys that never reach storage, whatever the
// toolkit declares.
var DefaultDenylist = []string{
	"api_key",
	"authorization",
	"credentials",
	"password",
	"secret",
	"token",
}

// sensitiveSuffixes is the structural heuristic: keys with these endings are
// removed even when a toolkit forgets to denylist them.
var sensitiveSuffixes = []string{
	"_token",
	"_secret",
	"_key",
	"_password",
}

// Sanitizer strips disallowed and sensitive metadata keys and bounds value
// sizes before persistence. It is applied to document-level and chunk-level
// metadata independently.
type Sanitizer struct {
	denylist      map[string]struct{}
	maxValueBytes int
}

// SanitizerOption is a function type to modify a Sanitizer
type SanitizerOption func(*Sanitizer)

// WithDenylist adds keys to the default denylist
func WithDenylist(keys ...string) SanitizerOption {
	return func(s *Sanitizer) {
		for _, key := range keys {
			s.denylist[strings.ToLower(key)] = struct{}{}
		}
	}
}

// WithMaxValueBytes sets the metadata value size ceiling
func WithMaxValueBytes(n int) SanitizerOption {
	return func(s *Sanitizer) {
		if n > 0 {
			s.maxValueBytes = n
		}
	}
}

// NewSanitizer creates a sanitizer with the default denylist and size ceiling.
func NewSanitizer(opts ...SanitizerOption) *Sanitizer {
	s := &Sanitizer{
		denylist:      make(map[string]struct{}, len(DefaultDenylist)),
		maxValueBytes: DefaultMaxValueBytes,
	}
	for _, key := range DefaultDenylist {
		s.denylist[key] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sanitize returns a cleaned copy of the metadata. Denylisted keys and keys
// matching the sensitive-name heuristic are removed unconditionally;
// oversized string values are truncated to the ceiling with a detectable
// marker, never silently dropped.
func (s *Sanitizer) Sanitize(metadata map[string]interface{}) map[string]interface{} {
	cleaned := make(map[string]interface{}, len(metadata))
	for key, value := range metadata {
		if s.sensitive(key) {
			continue
		}
		cleaned[key] = s.bound(value)
	}
	return cleaned
}

func (s *Sanitizer) sensitive(key string) bool {
	lower := strings.ToLower(key)
	if _, ok := s.denylist[lower]; ok {
		return true
	}
	for _, suffix := range sensitiveSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func (s *Sanitizer) bound(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		if len(v) > s.maxValueBytes {
			return v[:s.maxValueBytes] + TruncationMarker
		}
	case []byte:
		if len(v) > s.maxValueBytes {
			return string(v[:s.maxValueBytes]) + TruncationMarker
		}
	}
	return value
}
