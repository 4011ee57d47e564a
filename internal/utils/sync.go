// Package utils holds small internal helpers shared across jitalloc's
// packages that don't belong on the public API surface.
package utils

import "sync"

// OptionalMutex wraps a sync.Mutex that can be switched off. An Allocator
// created with CreateExternallySynchronized uses one of these for its
// malloc lock so that a single-threaded embedder pays no locking overhead.
type OptionalMutex struct {
	Mutex    sync.Mutex
	UseMutex bool
}

func (m *OptionalMutex) Lock() {
	if m.UseMutex {
		m.Mutex.Lock()
	}
}

func (m *OptionalMutex) Unlock() {
	if m.UseMutex {
		m.Mutex.Unlock()
	}
}
