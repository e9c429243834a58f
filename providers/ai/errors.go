package ai

import (
	"fmt"
	"strings"
)

// ConfigurationError reports missing or invalid credential configuration.
// It is raised synchronously during adapter setup and enumerates every
// missing field in one message so the user can fix the file in a single pass.
type ConfigurationError struct {
	Source        string   // "file" or "env"
	MissingFields []string // All required fields absent from the document
	Cause         error    // Parse failure, if any
}

func (e *ConfigurationError) Error() string {
	if len(e.MissingFields) > 0 {
		return fmt.Sprintf("invalid credentials (%s): missing required fields: %s",
			e.Source, strings.Join(e.MissingFields, ", "))
	}
	if e.Cause != nil {
		return fmt.Sprintf("invalid credentials (%s): %v", e.Source, e.Cause)
	}
	return fmt.Sprintf("invalid credentials (%s)", e.Source)
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }

// MappingError reports an input message or content part that has no lossless
// representation in the target backend dialect. Silently dropping user
// content is never acceptable, so normalization fails instead.
type MappingError struct {
	Dialect string      // Target dialect ("direct", "orchestration", "proxy")
	Role    MessageRole // Offending role, if role mapping failed
	Part    PartType    // Offending content-part tag, if part mapping failed
}

func (e *MappingError) Error() string {
	if e.Part != "" {
		return fmt.Sprintf("%s dialect: unsupported content part type %q", e.Dialect, e.Part)
	}
	return fmt.Sprintf("%s dialect: unsupported message role %q", e.Dialect, e.Role)
}

// TransportError reports a network, auth, or backend failure. Errors that
// occur before the first output event are eligible for retry; the retry
// middleware consults Transient to decide.
type TransportError struct {
	Backend    BackendKind
	StatusCode int // HTTP status, 0 when the request never completed
	Cause      error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s transport: status %d: %v", e.Backend, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("%s transport: %v", e.Backend, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Transient reports whether the failure is worth retrying: connection-level
// failures (no status) and throttling or server-side statuses.
func (e *TransportError) Transient() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == 429 || e.StatusCode >= 500
}
