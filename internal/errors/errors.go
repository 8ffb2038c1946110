// Package errors provides the provider-independent error taxonomy for unichat.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ============================================================
// Error Kinds
// ============================================================

// Kind classifies a failure for callers that need to react to it.
type Kind int

const (
	// KindUnknown is anything that could not be classified.
	KindUnknown Kind = iota

	// KindRateLimited means the provider throttled the request (HTTP 429).
	KindRateLimited

	// KindConnectionFailed covers transport failures before or during a response.
	KindConnectionFailed

	// KindBadRequest means the provider rejected the request shape (HTTP 400).
	KindBadRequest

	// KindAPIError is any other provider-reported failure.
	KindAPIError

	// KindUnsupported means the requested model or provider is not configured.
	KindUnsupported

	// KindMalformedToolArguments means tool-call arguments were not valid JSON.
	KindMalformedToolArguments
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindConnectionFailed:
		return "connection_failed"
	case KindBadRequest:
		return "bad_request"
	case KindAPIError:
		return "api_error"
	case KindUnsupported:
		return "unsupported"
	case KindMalformedToolArguments:
		return "malformed_tool_arguments"
	default:
		return "unknown"
	}
}

// ============================================================
// AppError - Main Error Type
// ============================================================

// AppError is the error type returned by every provider operation.
type AppError struct {
	// Kind determines how the error should be handled
	Kind Kind

	// Message is a user-friendly error message
	Message string

	// Provider names the backend that produced the error, if any
	Provider string

	// Status is the HTTP status code, or 0 when none was received
	Status int

	// Inner is the underlying error
	Inner error

	// Suggestions are recovery suggestions for the user
	Suggestions []string

	// Context is additional debugging information
	Context map[string]interface{}
}

// Error returns the error message.
func (e *AppError) Error() string {
	var sb strings.Builder

	sb.WriteString("[")
	sb.WriteString(e.Kind.String())
	if e.Provider != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Provider)
	}
	if e.Status != 0 {
		fmt.Fprintf(&sb, " %d", e.Status)
	}
	sb.WriteString("] ")

	sb.WriteString(e.Message)

	if e.Inner != nil {
		innerMsg := e.Inner.Error()
		if innerMsg != "" && innerMsg != e.Message {
			sb.WriteString(": ")
			sb.WriteString(innerMsg)
		}
	}

	return sb.String()
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Inner
}

// ============================================================
// Error Constructors
// ============================================================

// New creates a new AppError.
func New(kind Kind, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(kind Kind, format string, args ...any) *AppError {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error. An AppError passes through unchanged.
func Wrap(err error, kind Kind, message string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return &AppError{
		Kind:    kind,
		Message: message,
		Inner:   err,
	}
}

// Unsupported reports a model or provider that cannot be served.
func Unsupported(format string, args ...any) *AppError {
	return Newf(KindUnsupported, format, args...)
}

// ============================================================
// Builder Pattern for Fluent Error Construction
// ============================================================

// Builder provides fluent error construction.
type Builder struct {
	err *AppError
}

// NewBuilder starts building a new error.
func NewBuilder(kind Kind, message string) *Builder {
	return &Builder{
		err: &AppError{
			Kind:    kind,
			Message: message,
			Context: make(map[string]interface{}),
		},
	}
}

// Provider records which backend failed.
func (b *Builder) Provider(name string) *Builder {
	b.err.Provider = name
	return b
}

// Status records the HTTP status code.
func (b *Builder) Status(code int) *Builder {
	b.err.Status = code
	return b
}

// Wrap sets the underlying error.
func (b *Builder) Wrap(err error) *Builder {
	b.err.Inner = err
	return b
}

// WithSuggestion adds a recovery suggestion.
func (b *Builder) WithSuggestion(suggestion string) *Builder {
	b.err.Suggestions = append(b.err.Suggestions, suggestion)
	return b
}

// WithContext adds context information.
func (b *Builder) WithContext(key string, value interface{}) *Builder {
	b.err.Context[key] = value
	return b
}

// Build returns the constructed error.
func (b *Builder) Build() *AppError {
	return b.err
}

// ============================================================
// Classification
// ============================================================

// KindForStatus maps an HTTP status code onto the taxonomy.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusBadRequest:
		return KindBadRequest
	case status == 0:
		return KindConnectionFailed
	default:
		return KindAPIError
	}
}

// FromStatus builds an error from a bare status code and response body, for
// providers that report failures as {"error":{"message":...}} or
// {"message":...} without a typed error.
func FromStatus(provider string, status int, body []byte) *AppError {
	msg := messageFromBody(body)
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = "request failed"
	}
	return NewBuilder(KindForStatus(status), msg).
		Provider(provider).
		Status(status).
		Build()
}

func messageFromBody(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}
	if payload.Error != nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return payload.Message
}

// statusCoder is the generic shape of errors that carry an HTTP status.
type statusCoder interface {
	StatusCode() int
}

// Normalize maps err onto the taxonomy after provider-specific classifiers
// have had their turn. AppErrors pass through, gaining the provider name
// when they lack one.
func Normalize(provider string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Provider == "" {
			appErr.Provider = provider
		}
		return appErr
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		return NewBuilder(KindForStatus(sc.StatusCode()), err.Error()).
			Provider(provider).
			Status(sc.StatusCode()).
			Wrap(err).
			Build()
	}

	if IsTransport(err) {
		return NewBuilder(KindConnectionFailed, "connection failed").
			Provider(provider).
			Wrap(err).
			Build()
	}

	return NewBuilder(KindUnknown, err.Error()).
		Provider(provider).
		Wrap(err).
		Build()
}

// IsTransport reports whether err came from the network layer rather than
// from a provider response.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// ============================================================
// Helpers
// ============================================================

// KindOf extracts the kind from an error.
// Returns KindUnknown for non-AppError errors.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// Is reports whether err is an AppError of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// StatusOf returns the HTTP status recorded on err, or 0.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return 0
}

// FormatUserMessage formats a user-friendly error message with suggestions.
func FormatUserMessage(err error) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder

	var appErr *AppError
	if errors.As(err, &appErr) {
		sb.WriteString(appErr.Message)

		if len(appErr.Suggestions) > 0 {
			sb.WriteString("\n\nSuggestions:")
			for _, s := range appErr.Suggestions {
				sb.WriteString("\n  - ")
				sb.WriteString(s)
			}
		}

		return sb.String()
	}

	return err.Error()
}
