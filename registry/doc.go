// Package registry tracks live allocations handed across the boundary.
//
// A Registry maps each exported pointer identity to the tag of its true
// allocated type, the value itself, and a one-shot cleanup action. It is
// the single source of truth for "is this identity currently a live, typed
// allocation" and the sole executor of reclamation.
//
// # Lifecycle
//
// An entry exists from Track until Free:
//
//	reg := registry.New()
//
//	reg.Track(ptr, tag, value, cleanup)   // before ptr reaches the caller
//
//	err := reg.Validate(ptr, tag)         // read-only, any number of times
//	v, err := reg.Resolve(ptr, tag)       // validate + the tracked value
//
//	err = reg.Free(ptr)                   // exactly once
//	err = reg.Free(ptr)                   // invalid handle, cleanup not rerun
//
// Entries are immutable once inserted. Free removes the entry under the
// lock and runs the cleanup after releasing it, so two racing frees resolve
// to one success and one invalid-handle error, and a cleanup may re-enter
// the registry without deadlocking.
//
// # Null Identity
//
// The null identity is never tracked. Free(0) succeeds vacuously;
// Validate(0, tag) and Resolve(0, tag) fail with a null-parameter error.
//
// # Observers
//
// Subscribe to watch lifecycle transitions:
//
//	reg.Subscribe(obs)    // obs.OnRegistryEvent(Event) per track/free
//
// Events are delivered outside the registry lock.
//
// # Leak Reporting
//
// Entries are not garbage collected; a Track without a matching Free stays
// live forever. At teardown, ReportLeaks logs whatever is still tracked and
// Close force-frees it:
//
//	defer reg.Close()
//	reg.ReportLeaks()
//
// # Default Registry
//
// Boundary code normally shares one registry per process. Default returns
// that lazily created instance; the handle and cmem packages build on it.
package registry
