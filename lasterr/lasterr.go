// Package lasterr stores the most recent boundary failure per OS thread.
//
// Foreign callers cannot receive Go errors, only status codes. When an
// operation fails, the boundary records the numeric code and message here;
// the caller reads them back through its library's last-error accessors.
// Each OS thread has an independent slot, so two threads failing
// concurrently never observe each other's errors.
//
// On platforms without thread identities (see PerThread) all callers share
// a single slot.
package lasterr

import (
	"sync"

	"github.com/wippyai/ffi-guard/errors"
	"github.com/wippyai/ffi-guard/lasterr/internal/threadid"
)

type slot struct {
	message string
	code    int32
}

var (
	mu    sync.RWMutex
	slots = make(map[uint64]slot)
)

// PerThread reports whether errors are isolated per OS thread on this
// platform.
func PerThread() bool {
	return threadid.Supported
}

// Set records code and message for the calling thread. CodeNone clears the
// slot.
func Set(code int32, message string) {
	id := threadid.Current()
	mu.Lock()
	defer mu.Unlock()
	if code == errors.CodeNone {
		delete(slots, id)
		return
	}
	slots[id] = slot{code: code, message: message}
}

// Record stores err for the calling thread, mapping its kind to the ABI
// code. A nil err clears the slot.
func Record(err error) {
	if err == nil {
		Clear()
		return
	}
	Set(errors.CodeOf(err), err.Error())
}

// Code returns the calling thread's error code, CodeNone when clear.
func Code() int32 {
	mu.RLock()
	defer mu.RUnlock()
	return slots[threadid.Current()].code
}

// Message returns the calling thread's error message, "" when clear.
func Message() string {
	mu.RLock()
	defer mu.RUnlock()
	return slots[threadid.Current()].message
}

// Take returns and clears the calling thread's error.
func Take() (int32, string) {
	id := threadid.Current()
	mu.Lock()
	defer mu.Unlock()
	s := slots[id]
	delete(slots, id)
	return s.code, s.message
}

// Clear removes the calling thread's error.
func Clear() {
	mu.Lock()
	defer mu.Unlock()
	delete(slots, threadid.Current())
}
