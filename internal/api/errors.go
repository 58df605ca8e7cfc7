package api

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Fallback messages shown when the server gives no usable detail
const (
	DefaultFailureMessage  = "API request failed"
	AddGroupFailureMessage = "Failed to add group"
	AnalysisFailureMessage = "Analysis failed, please retry"
)

// ErrNotFound is matched by a RequestFailedError carrying a 404
var ErrNotFound = errors.New("resource not found")

// ValidationError is returned before any request is sent. Fields maps the
// offending field (e.g. "name", "post_links[2]") to a message.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Add records another offending field
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

// Empty reports whether no field was marked
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// OrNil returns e as an error only when it has fields
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// RequestFailedError means the server answered but not with success
type RequestFailedError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RequestFailedError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: server returned status %d: %s", e.Op, e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses. The backend also
// re-raises its own 404s as 500 with a "404: ..." detail, which matches too.
func (e *RequestFailedError) Is(target error) bool {
	if target != ErrNotFound {
		return false
	}
	if e.StatusCode == http.StatusNotFound {
		return true
	}
	return e.StatusCode == http.StatusInternalServerError && strings.HasPrefix(e.Message, "404:")
}

// TransportError means the server could not be reached or timed out
type TransportError struct {
	Op       string
	Fallback string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError means the response did not match any known envelope shape
type DecodeError struct {
	Op     string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: unexpected response: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: unexpected response: %s", e.Op, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// UserMessage turns any error from this package into the inline message a
// caller shows next to the form that triggered it.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	var rerr *RequestFailedError
	if errors.As(err, &rerr) {
		return rerr.Message
	}
	var terr *TransportError
	if errors.As(err, &terr) {
		if terr.Fallback != "" {
			return terr.Fallback
		}
		return DefaultFailureMessage
	}
	return DefaultFailureMessage
}
