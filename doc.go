// Package ffiguard provides a runtime safety layer for handing memory-owning
// Go objects to callers on the other side of a C ABI boundary.
//
// When a library exports raw pointers to unmanaged code, the foreign caller
// can double-free them, free them as the wrong type, or keep using them after
// free. This library tracks every exported pointer in a process-wide registry
// and validates identity and type on every access, turning those bugs into
// recoverable errors instead of memory corruption.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	ffiguard/            Root package with Ptr, Tag and Releaser primitives
//	├── registry/        Allocation registry: identity -> (tag, value, cleanup)
//	├── handle/          Typed handle protocol: Track, Borrow, Free
//	├── lasterr/         Per-thread last-error slots for boundary reporting
//	├── cmem/            C string and byte buffer allocations with usage stats
//	├── errors/          Structured error types and C ABI error codes
//	├── testbed/         End-to-end boundary scenarios
//	├── cmd/ffisim/      Scenario runner and interactive boundary exerciser
//	└── examples/uuid/   A UUID library exposed through the guard
//
// # Quick Start
//
// Export an object, use it, free it:
//
//	type Codec struct{ name string }
//
//	ptr := handle.Track(&Codec{name: "h264"})   // hand ptr to the caller
//
//	c, err := handle.Borrow[Codec](ptr)         // validate + borrow on access
//	if err != nil {
//	    return ffiguard.StatusError
//	}
//	_ = c.name
//
//	handle.FreeStatus(ptr)                      // 0 on success, -1 on failure
//	handle.FreeStatus(ptr)                      // -1: already freed, no crash
//
// # Handle Lifecycle
//
// Every identity moves through exactly one cycle:
//
//	Untracked -> Tracked -> Freed
//
// Track registers a live allocation before its address ever reaches the
// caller. Borrow validates identity and type without changing state. Free
// removes the entry exactly once and runs the cleanup captured at track
// time; a second free fails with an invalid-handle error instead of
// corrupting memory. Freed and never-tracked addresses are indistinguishable
// to the registry: both are simply absent.
//
// # Thread Safety
//
// All registry operations are safe for concurrent use from any goroutine or
// foreign thread. A single mutex guards the map; cleanup actions always run
// after the lock is released, so a cleanup may re-enter the registry. The
// last-error slot is per OS thread and never shared.
//
// # Memory Model
//
// The registry keys entries by the numeric address of the allocation and
// keeps a reference to the value, so the allocation stays live and its
// address stays meaningful until freed. Go's collector does not move heap
// objects, which is what makes the address a stable identity. Tracked
// values are never reclaimed by the collector alone: every Track must be
// paired with exactly one Free, and registry.ReportLeaks surfaces whatever
// the caller forgot.
package ffiguard
