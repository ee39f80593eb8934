// Package threadid identifies the calling OS thread for per-thread state.
package threadid
