package ffiguard

import (
	"fmt"
	"reflect"
	"unsafe"
)

// Ptr is the numeric identity of a tracked allocation, as handed to the
// foreign caller. It is opaque to the caller and meaningful only through
// the registry.
type Ptr uintptr

// NullPtr is the null identity. It is never tracked: freeing it succeeds
// vacuously and validating it fails with a null-parameter error.
const NullPtr Ptr = 0

// IsNull reports whether p is the null identity.
func (p Ptr) IsNull() bool {
	return p == NullPtr
}

// String renders the identity as a hex address for diagnostics.
func (p Ptr) String() string {
	return fmt.Sprintf("0x%x", uintptr(p))
}

// PtrOf returns the identity of v. A nil pointer yields NullPtr.
func PtrOf[T any](v *T) Ptr {
	if v == nil {
		return NullPtr
	}
	return Ptr(uintptr(unsafe.Pointer(v)))
}

// Tag identifies the true allocated type of a tracked value. Tags are
// canonical per type per process and compare with ==.
type Tag struct {
	t reflect.Type
}

// TagOf returns the tag for type T.
func TagOf[T any]() Tag {
	return Tag{t: reflect.TypeFor[T]()}
}

// IsZero reports whether the tag carries no type.
func (g Tag) IsZero() bool {
	return g.t == nil
}

// String returns the type name behind the tag.
func (g Tag) String() string {
	if g.t == nil {
		return "<untyped>"
	}
	return g.t.String()
}

// Releaser is optionally implemented by tracked values that hold resources
// beyond memory. Release is invoked exactly once when the value is freed.
type Releaser interface {
	Release()
}

// Status codes returned across the boundary by free-shaped operations.
// Failure detail is available through the lasterr package.
const (
	StatusOK    int32 = 0
	StatusError int32 = -1
)
