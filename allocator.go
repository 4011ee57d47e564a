package jitalloc

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"

	"github.com/jitalloc/jitalloc/internal/utils"
)

// Allocator is a size-bucketed free-list allocation cache with deferred,
// stream-synchronized reclamation: Allocate, Free, FreeFlush, Migrate,
// Prefetch, Trim, and Shutdown, composed on top of a globalCache, a
// liveTable, a releaseChain per Stream, and an unmapQueue.
//
// Allocator is meant to be used as a long-lived service with an explicit
// Shutdown call. It deliberately does not hide itself behind
// package-level state, so tests can construct as many independent
// instances as they like.
type Allocator struct {
	logger   *slog.Logger
	backend  Backend
	registry DeviceRegistry

	// mainLock is the caller's own outer lock. It is released for the
	// duration of every slow/recursive Backend call and reacquired
	// immediately after. A nil mainLock is treated as a no-op, for
	// callers with no outer lock to coordinate with.
	mainLock sync.Locker

	useMutex         bool
	workerPoolEnabled bool
	vectorWidthLanes int

	// mallocMu covers cache, live, unmap, and every Stream's releaseChain
	// pointer and contents.
	mallocMu utils.OptionalMutex

	cache *globalCache
	live  *liveTable
	unmap unmapQueue

	trimWarned atomic.Bool
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

// New constructs an Allocator. mainLock is the JIT compiler's outer lock
// that Allocator calls are made under and will release around slow Backend
// calls; pass nil if there is no outer lock to coordinate with.
func New(logger *slog.Logger, backend Backend, registry DeviceRegistry, mainLock sync.Locker, opts CreateOptions) (*Allocator, error) {
	if backend == nil {
		return nil, errors.New("jitalloc: New requires a non-nil Backend")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if mainLock == nil {
		mainLock = noopLocker{}
	}

	useMutex := opts.Flags&CreateExternallySynchronized == 0

	a := &Allocator{
		logger:            logger,
		backend:           backend,
		registry:          registry,
		mainLock:          mainLock,
		useMutex:          useMutex,
		workerPoolEnabled: opts.Flags&CreateWithoutWorkerPool == 0,
		vectorWidthLanes:  opts.VectorWidthLanes,
		mallocMu:          utils.OptionalMutex{UseMutex: useMutex},
		cache:             newGlobalCache(),
		live:              newLiveTable(),
	}

	return a, nil
}

// unlockMain releases the caller's outer lock for the duration of a slow or
// recursive Backend call. It returns a function that re-acquires it;
// callers always `defer a.unlockMain()()`.
func (a *Allocator) unlockMain() func() {
	a.mainLock.Unlock()
	return a.mainLock.Lock
}

// withMainUnlocked runs fn with the caller's outer lock released. Every
// call to Backend that can block on the driver or a stream goes through
// this, so the caller's own lock is never held across a driver call.
func (a *Allocator) withMainUnlocked(fn func() error) error {
	defer a.unlockMain()()
	return fn()
}
