package bitbucket

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SchemaMismatchError reports a server payload that does not match the
// expected resource shape, most commonly a missing required field.
// Field is a dotted path into the payload, e.g. "values[3].project.key".
type SchemaMismatchError struct {
	Resource string // Resource type being decoded, e.g. "repository"
	Field    string // Path of the offending field
	Reason   string // Optional detail, e.g. "not valid JSON"
}

func (e *SchemaMismatchError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s payload field %q: %s", e.Resource, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s payload is missing required field %q", e.Resource, e.Field)
}

// UnknownEnumValueError reports a value outside one of the closed
// enumerations. Unknown values fail decoding instead of being coerced so
// that API drift between server versions is detected early.
type UnknownEnumValueError struct {
	Enum  string // Enumeration name, e.g. "PullRequestState"
	Field string // Path of the field, filled in by the enclosing decoder
	Value string // Raw value received from the server
}

func (e *UnknownEnumValueError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("field %q: unknown %s value %q", e.Field, e.Enum, e.Value)
	}
	return fmt.Sprintf("unknown %s value %q", e.Enum, e.Value)
}

// CyclicReferenceError reports a comment payload whose ancestor chain
// revisits an id already seen, which would otherwise recurse unboundedly.
type CyclicReferenceError struct {
	ID int64 // Comment id that closed the cycle
}

func (e *CyclicReferenceError) Error() string {
	return fmt.Sprintf("comment %d appears in its own ancestor chain", e.ID)
}

// TransportError reports a connection-level failure (dial, TLS, timeout)
// after retries were exhausted.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError reports an HTTP 401 or 403. Never retried.
type AuthError struct {
	StatusCode int
	Path       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s (HTTP %d)", e.Path, e.StatusCode)
}

// NotFoundError reports an HTTP 404.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.Path)
}

// RateLimitedError reports an HTTP 429. RetryAfter carries the server's
// Retry-After hint when present, zero otherwise.
type RateLimitedError struct {
	Path       string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited on %s, retry after %s", e.Path, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited on %s", e.Path)
}

// ServerError reports a non-2xx status that maps to no more specific class.
// Statuses >= 500 are considered transient and retried for idempotent calls.
type ServerError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *ServerError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("server returned HTTP %d for %s", e.StatusCode, e.Path)
	}
	return fmt.Sprintf("server returned HTTP %d for %s: %s", e.StatusCode, e.Path, body)
}

// VersionConflictError reports an HTTP 409 from a mutating call: the
// resource changed since the version the caller supplied was read.
// The caller must re-fetch to obtain the current version.
type VersionConflictError struct {
	Path string
	Body string
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict on %s, re-fetch the resource for its current version", e.Path)
}

// CancelledError reports that the caller's context expired before the call
// completed. It unwraps to the context error so errors.Is(err,
// context.Canceled) and context.DeadlineExceeded keep working.
type CancelledError struct {
	Err error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("call cancelled: %v", e.Err)
}

func (e *CancelledError) Unwrap() error { return e.Err }

// cancelled wraps a context error, defaulting to context.Canceled when the
// context has no recorded cause.
func cancelled(ctx context.Context) *CancelledError {
	err := ctx.Err()
	if err == nil {
		err = context.Canceled
	}
	return &CancelledError{Err: err}
}

// isTransient reports whether err may succeed on retry. Decode-time errors
// are never transient: they indicate a schema mismatch, not a flaky network.
func isTransient(err error) bool {
	switch err.(type) {
	case *TransportError, *RateLimitedError:
		return true
	case *ServerError:
		return err.(*ServerError).StatusCode >= 500
	}
	return false
}

// prefixField prepends a path segment to the field path of a decode error,
// so that element failures inside pages and nested records point at the
// exact offending location.
func prefixField(err error, segment string) error {
	switch e := err.(type) {
	case *SchemaMismatchError:
		e.Field = joinPath(segment, e.Field)
	case *UnknownEnumValueError:
		e.Field = joinPath(segment, e.Field)
	}
	return err
}

func joinPath(segment, field string) string {
	if field == "" {
		return segment
	}
	if strings.HasPrefix(field, "[") {
		return segment + field
	}
	return segment + "." + field
}
