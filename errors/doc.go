// Package errors provides structured error types for the ffi-guard library.
//
// Errors carry the operation that failed (Op), an error category (Kind) and
// the handle involved, plus optional type tags and a cause chain. Every Kind
// maps to a stable numeric code for the C ABI side channel.
//
// Use the convenience constructors for the common failures:
//
//	err := errors.NullParameter("validate")
//	err := errors.InvalidHandle("free", ptr)
//	err := errors.WrongHandleType("borrow", ptr, want, got)
//
// or the Builder when more context is needed:
//
//	err := errors.New("cstring", errors.KindStringTooLong).
//		Detail("%d bytes exceeds limit %d", n, max).
//		Build()
//
// All errors implement the standard error interface and support errors.Is/As.
// Matching with Is compares Kind, and Op when the target sets one.
package errors
