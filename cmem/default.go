package cmem

import (
	"sync"

	ffiguard "github.com/wippyai/ffi-guard"
	"github.com/wippyai/ffi-guard/lasterr"
	"github.com/wippyai/ffi-guard/registry"
)

var defaultAllocator = sync.OnceValue(func() *Allocator {
	return NewAllocator(registry.Default())
})

// Default returns the allocator over the default registry. Allocations made
// through it are freed by the universal free like any other handle.
func Default() *Allocator {
	return defaultAllocator()
}

// The package-level functions are the boundary surface: they operate on the
// default allocator and record failures in the calling thread's last-error
// slot.

func NewCString(s string) (ffiguard.Ptr, error) {
	return recorded(Default().NewCString(s))
}

func GoString(p ffiguard.Ptr) (string, error) {
	return recorded(Default().GoString(p))
}

func NewBytes(b []byte) (ffiguard.Ptr, error) {
	return recorded(Default().NewBytes(b))
}

func Bytes(p ffiguard.Ptr) ([]byte, error) {
	return recorded(Default().Bytes(p))
}

func NewWideString(s string) (ffiguard.Ptr, error) {
	return recorded(Default().NewWideString(s))
}

func GoWideString(p ffiguard.Ptr) (string, error) {
	return recorded(Default().GoWideString(p))
}

func NewAnsiString(s string) (ffiguard.Ptr, error) {
	return recorded(Default().NewAnsiString(s))
}

func GoAnsiString(p ffiguard.Ptr) (string, error) {
	return recorded(Default().GoAnsiString(p))
}

func recorded[T any](v T, err error) (T, error) {
	if err != nil {
		lasterr.Record(err)
	}
	return v, err
}
