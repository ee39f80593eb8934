//go:build linux

package threadid

import "golang.org/x/sys/unix"

// Supported reports that thread identities are available on this platform.
const Supported = true

// Current returns the OS thread ID of the calling thread.
func Current() uint64 {
	return uint64(unix.Gettid())
}
