package errors

import (
	"fmt"
	"strings"

	ffiguard "github.com/wippyai/ffi-guard"
)

// Kind categorizes the error
type Kind string

const (
	KindNullParameter     Kind = "null_parameter"
	KindStringTooLong     Kind = "string_too_long"
	KindInvalidHandle     Kind = "invalid_handle"
	KindWrongHandleType   Kind = "wrong_handle_type"
	KindOther             Kind = "other"
	KindInvalidBufferSize Kind = "invalid_buffer_size"
)

// Numeric codes reported through the last-error side channel. Codes 1-99
// are reserved for the guard infrastructure; libraries built on top assign
// their own codes starting at FirstLibraryCode.
const (
	CodeNone              int32 = 0
	CodeNullParameter     int32 = 1
	CodeStringTooLong     int32 = 2
	CodeInvalidHandle     int32 = 3
	CodeWrongHandleType   int32 = 4
	CodeOther             int32 = 5
	CodeLockFailed        int32 = 6
	CodeInvalidBufferSize int32 = 7

	FirstLibraryCode int32 = 100
)

// Code returns the stable ABI code for the kind.
func (k Kind) Code() int32 {
	switch k {
	case KindNullParameter:
		return CodeNullParameter
	case KindStringTooLong:
		return CodeStringTooLong
	case KindInvalidHandle:
		return CodeInvalidHandle
	case KindWrongHandleType:
		return CodeWrongHandleType
	case KindInvalidBufferSize:
		return CodeInvalidBufferSize
	default:
		return CodeOther
	}
}

// Error is the structured error type used throughout the library
type Error struct {
	Cause  error
	Op     string
	Kind   Kind
	Handle ffiguard.Ptr
	Want   ffiguard.Tag
	Got    ffiguard.Tag
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(e.Op)
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if !e.Handle.IsNull() {
		b.WriteString(" at ")
		b.WriteString(e.Handle.String())
	}

	if !e.Want.IsZero() || !e.Got.IsZero() {
		b.WriteString(": want ")
		b.WriteString(e.Want.String())
		b.WriteString(", got ")
		b.WriteString(e.Got.String())
	}

	if e.Detail != "" {
		if !e.Want.IsZero() || !e.Got.IsZero() {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Op != "" && t.Op != e.Op {
			return false
		}
		return e.Kind == t.Kind
	}
	return false
}

// Code returns the ABI code for this error.
func (e *Error) Code() int32 {
	return e.Kind.Code()
}

// KindOf returns the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

// CodeOf returns the ABI code for err. Nil maps to CodeNone, non-guard
// errors to CodeOther.
func CodeOf(err error) int32 {
	if err == nil {
		return CodeNone
	}
	if e, ok := err.(*Error); ok {
		return e.Code()
	}
	return CodeOther
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(op string, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Op:   op,
			Kind: kind,
		},
	}
}

// Handle sets the handle involved
func (b *Builder) Handle(p ffiguard.Ptr) *Builder {
	b.err.Handle = p
	return b
}

// Want sets the expected type tag
func (b *Builder) Want(t ffiguard.Tag) *Builder {
	b.err.Want = t
	return b
}

// Got sets the actual type tag
func (b *Builder) Got(t ffiguard.Tag) *Builder {
	b.err.Got = t
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NullParameter creates an error for a null handle where a value was required
func NullParameter(op string) *Error {
	return &Error{
		Op:     op,
		Kind:   KindNullParameter,
		Detail: "null pointer",
	}
}

// InvalidHandle creates an error for an untracked or already freed handle
func InvalidHandle(op string, p ffiguard.Ptr) *Error {
	return &Error{
		Op:     op,
		Kind:   KindInvalidHandle,
		Handle: p,
		Detail: "not tracked",
	}
}

// WrongHandleType creates an error for a tracked handle of a different type
func WrongHandleType(op string, p ffiguard.Ptr, want, got ffiguard.Tag) *Error {
	return &Error{
		Op:     op,
		Kind:   KindWrongHandleType,
		Handle: p,
		Want:   want,
		Got:    got,
	}
}

// StringTooLong creates an error for a string exceeding the boundary limit
func StringTooLong(op string, n, max int) *Error {
	return &Error{
		Op:     op,
		Kind:   KindStringTooLong,
		Detail: fmt.Sprintf("%d bytes exceeds limit %d", n, max),
	}
}

// InvalidBufferSize creates an error for a buffer with an unusable size
func InvalidBufferSize(op string, n int) *Error {
	return &Error{
		Op:     op,
		Kind:   KindInvalidBufferSize,
		Detail: fmt.Sprintf("buffer size %d", n),
	}
}

// Other creates an uncategorized error
func Other(op, detail string) *Error {
	return &Error{
		Op:     op,
		Kind:   KindOther,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(op string, kind Kind, cause error, detail string) *Error {
	return &Error{
		Op:     op,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
