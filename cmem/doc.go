// Package cmem allocates C-shaped memory (NUL-terminated strings, byte
// buffers, UTF-16LE wide strings, Windows-1252 ANSI strings) and tracks
// every allocation through the registry, so the universal free and the
// validation protocol apply to raw memory exactly as they do to objects.
//
// # Ownership
//
// Constructors copy their input; the allocation belongs to the registry
// from the returned identity until it is freed. Read-back accessors borrow:
// the string or slice they return is valid only while the allocation is
// live and must not be stored across a free.
//
// # Kinds and Leaks
//
// Each allocation is classified by Kind. The allocator keeps live counts
// and byte totals per kind, updated when allocations are created and
// reclaimed. ReportLeaks logs whatever is still live; call it at teardown
// after the owning registry is drained.
package cmem
