package jitalloc

import "github.com/cockroachdb/errors"

// Sentinel errors surfaced at the Allocator's public boundary. Callers
// should compare against these with errors.Is, not string-match messages.
var (
	// ErrOutOfMemory is returned when the raw backend refuses an
	// allocation both before and after a trim retry.
	ErrOutOfMemory = errors.New("jitalloc: out of memory")
	// ErrNoActiveStream is returned when Device or HostAsync memory is
	// requested, or Migrate is called, with a nil Stream, and by Prefetch
	// when the Stream is nil or not a GPU stream.
	ErrNoActiveStream = errors.New("jitalloc: no active stream for this allocation kind")
	// ErrWrongBackend is returned when the supplied Stream's backend
	// doesn't match what the requested AllocKind requires.
	ErrWrongBackend = errors.New("jitalloc: stream backend does not match allocation kind")
	// ErrUnknownPointer is returned by Free, Migrate, and Prefetch when
	// the pointer isn't currently owned by this Allocator.
	ErrUnknownPointer = errors.New("jitalloc: pointer is not owned by this allocator")
	// ErrInvalidKindForPrefetch is returned by Prefetch for any kind
	// other than Managed or ManagedReadMostly.
	ErrInvalidKindForPrefetch = errors.New("jitalloc: prefetch requires Managed or ManagedReadMostly memory")
	// ErrUnsupportedMigration is returned by Migrate for kind pairs the
	// allocator has no path between (e.g. HostAsync to or from a
	// GPU-accessible kind).
	ErrUnsupportedMigration = errors.New("jitalloc: unsupported migration between these kinds")
)

// internalBug panics with a wrapped message. It marks branches that are
// unreachable for any valid AllocKind — a switch missing a case is a
// fatal bug, not a condition a caller could recover from.
func internalBug(format string, args ...interface{}) {
	panic(errors.Newf("jitalloc: internal error: "+format, args...))
}
