// Package kdderr defines the typed error codes surfaced by the engine's
// query and ingest APIs. All failure is expressed as returned values;
// callers switch on Code at the API boundary.
package kdderr

import (
	"errors"
	"fmt"
)

// Code identifies one failure class.
type Code string

// User input errors — recovered at the API boundary, never retried.
const (
	InvalidParams    Code = "INVALID_PARAMS"
	EmptyHints       Code = "EMPTY_HINTS"
	QueryTooShort    Code = "QUERY_TOO_SHORT"
	InvalidDepth     Code = "INVALID_DEPTH"
	UnknownEdgeType  Code = "UNKNOWN_EDGE_TYPE"
	NodeNotFound     Code = "NODE_NOT_FOUND"
	DocumentNotFound Code = "DOCUMENT_NOT_FOUND"
	UnknownKind      Code = "UNKNOWN_KIND"
)

// Capability errors.
const (
	NoEmbeddings     Code = "NO_EMBEDDINGS"
	LowIndexLevel    Code = "LOW_INDEX_LEVEL"
	IndexUnavailable Code = "INDEX_UNAVAILABLE"
)

// I/O and integrity errors.
const (
	IndexWriteFailed    Code = "INDEX_WRITE_FAILED"
	OutputWriteFailed   Code = "OUTPUT_WRITE_FAILED"
	InvalidFrontMatter  Code = "INVALID_FRONT_MATTER"
	ExtractionFailed    Code = "EXTRACTION_FAILED"
	EmbeddingFailed     Code = "EMBEDDING_FAILED"
	TokenLimitExceeded  Code = "TOKEN_LIMIT_EXCEEDED"
	Timeout             Code = "TIMEOUT"
	PartialFailure      Code = "PARTIAL_FAILURE"
)

// Merge errors — all fatal, no partial merge survives.
const (
	IncompatibleVersion        Code = "INCOMPATIBLE_VERSION"
	IncompatibleEmbeddingModel Code = "INCOMPATIBLE_EMBEDDING_MODEL"
	IncompatibleStructure      Code = "INCOMPATIBLE_STRUCTURE"
	InsufficientSources        Code = "INSUFFICIENT_SOURCES"
	ConflictRejected           Code = "CONFLICT_REJECTED"
)

// External errors, surfaced as-is.
const (
	GitNotAvailable Code = "GIT_NOT_AVAILABLE"
	CommitNotFound  Code = "COMMIT_NOT_FOUND"
	AgentTimeout    Code = "AGENT_TIMEOUT"
	APIKeyMissing   Code = "API_KEY_MISSING"
)

// Error is a coded engine error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code to an underlying error.
func Wrap(code Code, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: err.Error(), Err: err}
}

// CodeOf extracts the engine code from err, or "" when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
