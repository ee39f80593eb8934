//go:build !linux && !windows

package threadid

// Supported reports that thread identities are unavailable here; all
// callers share slot zero.
const Supported = false

// Current returns the OS thread ID of the calling thread.
func Current() uint64 {
	return 0
}
