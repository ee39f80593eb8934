package handle

import (
	ffiguard "github.com/wippyai/ffi-guard"
	"github.com/wippyai/ffi-guard/errors"
	"github.com/wippyai/ffi-guard/lasterr"
	"github.com/wippyai/ffi-guard/registry"
)

// Track registers v in the default registry and returns its identity. The
// registry owns v until Free; if v implements ffiguard.Releaser, Release
// runs when the handle is freed. A nil v yields NullPtr, so the caller
// receives either a valid tracked pointer or null, never an untracked one.
func Track[T any](v *T) ffiguard.Ptr {
	return TrackFunc(v, release[T])
}

// TrackFunc registers v with a custom cleanup. The cleanup runs exactly
// once, when the handle is freed.
func TrackFunc[T any](v *T, cleanup func(*T)) ffiguard.Ptr {
	if v == nil {
		return ffiguard.NullPtr
	}
	p := ffiguard.PtrOf(v)
	var fn func()
	if cleanup != nil {
		fn = func() { cleanup(v) }
	}
	registry.Default().Track(p, ffiguard.TagOf[T](), v, fn)
	return p
}

// New moves v to a stable heap location, tracks it and returns the
// identity. It is the construct-and-track step in one call.
func New[T any](v T) ffiguard.Ptr {
	boxed := new(T)
	*boxed = v
	return Track(boxed)
}

// Validate reports whether p is live and was allocated as a T. It is
// side-effect-free: it neither mutates the entry nor touches the
// last-error slot, and may be called any number of times between Track
// and Free.
func Validate[T any](p ffiguard.Ptr) error {
	return registry.Default().Validate(p, ffiguard.TagOf[T]())
}

// Borrow validates p against T and returns the tracked value, valid for
// the duration of the current call only. The reference must not be stored.
// On failure the specific error is recorded in the calling thread's
// last-error slot and returned, and the entry is left untouched.
func Borrow[T any](p ffiguard.Ptr) (*T, error) {
	v, err := registry.Default().Resolve(p, ffiguard.TagOf[T]())
	if err != nil {
		lasterr.Record(err)
		return nil, err
	}
	t, ok := v.(*T)
	if !ok {
		err := errors.New("borrow", errors.KindWrongHandleType).
			Handle(p).
			Want(ffiguard.TagOf[T]()).
			Detail("tracked value is %T", v).
			Build()
		lasterr.Record(err)
		return nil, err
	}
	return t, nil
}

// Free reclaims the handle p, running the cleanup captured at track time.
// It is polymorphic over every tracked type: the registry's cleanup knows
// how to reclaim the real allocation. Freeing NullPtr succeeds as a no-op;
// freeing an unknown or already freed handle fails with an invalid-handle
// error recorded in the last-error slot.
func Free(p ffiguard.Ptr) error {
	if err := registry.Default().Free(p); err != nil {
		lasterr.Record(err)
		return err
	}
	return nil
}

// FreeStatus is Free collapsed to the boundary convention: StatusOK on
// success, StatusError on failure with detail available through lasterr.
func FreeStatus(p ffiguard.Ptr) int32 {
	if err := Free(p); err != nil {
		return ffiguard.StatusError
	}
	return ffiguard.StatusOK
}

func release[T any](v *T) {
	if r, ok := any(v).(ffiguard.Releaser); ok {
		r.Release()
	}
}
