// Package errs provides structured error types shared across the tradewire client.
package errs

import (
	"errors"
	"strconv"
	"strings"
)

// Code identifies an error category in the client taxonomy.
type Code string

const (
	// CodeConnection indicates a transport-level failure fatal to the connection.
	CodeConnection Code = "connection"
	// CodeAuth indicates a login or session authentication failure.
	CodeAuth Code = "auth"
	// CodeMalformed indicates a single inbound frame that could not be parsed.
	CodeMalformed Code = "malformed_message"
	// CodeNotConnected indicates a call attempted outside the authenticated state.
	CodeNotConnected Code = "not_connected"
	// CodeTimeout indicates no correlated response arrived within the deadline.
	CodeTimeout Code = "timeout"
	// CodeCancelled indicates the caller's context ended the wait.
	CodeCancelled Code = "cancelled"
	// CodeApplication indicates the platform returned a named failure payload.
	CodeApplication Code = "application"
	// CodeInvalid indicates invalid input provided by the caller.
	CodeInvalid Code = "invalid_request"
)

// E captures structured error information produced across the client stack.
type E struct {
	Op      string
	Code    Code
	Status  int
	Message string
	RawMsg  string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the operation and error code.
func New(op string, code Code, opts ...Option) *E {
	e := &E{
		Op:      strings.TrimSpace(op),
		Code:    code,
		Status:  0,
		Message: "",
		RawMsg:  "",
		cause:   nil,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithStatus records the platform status code carried on the envelope.
func WithStatus(status int) Option {
	return func(e *E) {
		e.Status = status
	}
}

// WithRawMessage captures the raw platform error message.
func WithRawMessage(msg string) Option {
	return func(e *E) {
		e.RawMsg = msg
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	op := strings.TrimSpace(e.Op)
	if op == "" {
		op = "unknown"
	}
	parts = append(parts, "op="+op)

	code := strings.TrimSpace(string(e.Code))
	if code == "" {
		code = "unknown"
	}
	parts = append(parts, "code="+code)

	if e.Status > 0 {
		parts = append(parts, "status="+strconv.Itoa(e.Status))
	}
	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if e.RawMsg != "" {
		parts = append(parts, "raw_msg="+strconv.Quote(e.RawMsg))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// CodeOf extracts the taxonomy code from err, or the empty code when err does
// not carry one.
func CodeOf(err error) Code {
	var e *E
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsTimeout reports whether err represents an expired correlated call.
func IsTimeout(err error) bool { return CodeOf(err) == CodeTimeout }

// IsCancelled reports whether err was produced by the caller's own context
// ending a wait, as opposed to the protocol failing to answer in time.
func IsCancelled(err error) bool { return CodeOf(err) == CodeCancelled }

// IsApplication reports whether err carries a platform-side rejection, as
// opposed to a transport or timeout failure.
func IsApplication(err error) bool { return CodeOf(err) == CodeApplication }

// IsNotConnected reports whether err was produced by a call issued before the
// connection reached the authenticated state.
func IsNotConnected(err error) bool { return CodeOf(err) == CodeNotConnected }
