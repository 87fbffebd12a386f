package codec

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the taxonomy from the error-handling design: validation and
// invalid-state/quota-exceeded fail synchronously at the facade; everything
// else reaches the host as an ErrorOutput on the same ordering channel as
// successful outputs.
type ErrorKind string

const (
	ErrValidation     ErrorKind = "validation"
	ErrInvalidState   ErrorKind = "invalid-state"
	ErrQuotaExceeded  ErrorKind = "quota-exceeded"
	ErrCodecOpen      ErrorKind = "codec-open"
	ErrCodecRun       ErrorKind = "codec-run"
	ErrReinitAfterEOS ErrorKind = "reinit-after-flush"
	ErrAborted        ErrorKind = "aborted"
	ErrHostTeardown   ErrorKind = "host-teardown"
)

var (
	ErrClosed        = errors.New("codec: instance is closed")
	ErrNotConfigured = errors.New("codec: instance is not configured")
)

// CodecError is a structured error carrying the operation that failed, the
// backend's numeric error code when one exists, and free-form key/value
// context, assembled with a fluent builder the way the original error
// builder assembles context before surfacing a JS exception.
type CodecError struct {
	Kind      ErrorKind
	Operation string
	Code      *int
	ctx       []string
	cause     error
}

func newError(kind ErrorKind, operation string) *CodecError {
	return &CodecError{Kind: kind, Operation: operation}
}

// WithCode attaches the native codec library's numeric error code.
func (e *CodecError) WithCode(code int) *CodecError {
	e.Code = &code
	return e
}

// WithContext appends a human-readable context fragment, fluent-builder
// style: WithContext("dims").WithContext("64x64").
func (e *CodecError) WithContext(ctx string) *CodecError {
	e.ctx = append(e.ctx, ctx)
	return e
}

// WithValue appends a "key=value" context fragment.
func (e *CodecError) WithValue(key string, value any) *CodecError {
	return e.WithContext(fmt.Sprintf("%s=%v", key, value))
}

// WithCause wraps an underlying error for errors.Is/errors.As.
func (e *CodecError) WithCause(cause error) *CodecError {
	e.cause = cause
	return e
}

func (e *CodecError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Operation)
	if e.Code != nil {
		fmt.Fprintf(&b, " (code=%d)", *e.Code)
	}
	if len(e.ctx) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.ctx, " "))
		b.WriteString("]")
	}
	if e.cause != nil {
		fmt.Fprintf(&b, ": %v", e.cause)
	}
	return b.String()
}

func (e *CodecError) Unwrap() error { return e.cause }

// ErrorOutput is the async error payload delivered through the output
// channel alongside successful results, per §3.3/§7.
type ErrorOutput struct {
	Kind           ErrorKind
	Message        string
	CodecErrorCode *int
}

func errorOutputFrom(err *CodecError) ErrorOutput {
	return ErrorOutput{Kind: err.Kind, Message: err.Error(), CodecErrorCode: err.Code}
}
