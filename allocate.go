package jitalloc

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// Allocate returns a pointer to size bytes of the given kind, preferring a
// cached block over a fresh driver allocation. stream must be non-nil and
// match the requested kind's backend for Device and HostAsync; it is
// ignored for every other kind. A zero-byte request returns the null
// pointer (0) without recording any live allocation.
func (a *Allocator) Allocate(stream *Stream, kind AllocKind, size uint64) (uintptr, error) {
	if size == 0 {
		return 0, nil
	}

	if kind == HostAsync && !a.workerPoolEnabled {
		kind = Host
	}

	device := 0
	if kind == Device || kind == HostAsync {
		if stream == nil {
			return 0, errors.Wrapf(ErrNoActiveStream, "allocate(%s)", kind)
		}
		wantBackend := BackendGPU
		if kind == HostAsync {
			wantBackend = BackendCPUWorker
		}
		if stream.Backend != wantBackend {
			return 0, errors.Wrapf(ErrWrongBackend, "allocate(%s) requires a %s stream, got %s", kind, wantBackend, stream.Backend)
		}
		if kind == Device {
			device = stream.Device
		}
	}

	info := AllocInfo{Kind: kind, Device: device, Size: roundSize(kind, size, a.vectorWidthLanes)}

	ptr, source := a.recycle(stream, info)
	if ptr == 0 {
		var err error
		ptr, err = a.allocateFresh(info)
		if err != nil {
			return 0, err
		}
		source = "new allocation"
	}

	a.mallocMu.Lock()
	a.live.insert(ptr, info)
	a.mallocMu.Unlock()

	a.logger.Debug("jitalloc: allocate",
		slog.String("kind", kind.String()),
		slog.Int("device", device),
		slog.Uint64("size", info.Size),
		slog.Uint64("ptr", uint64(ptr)),
		slog.String("source", source),
	)

	return ptr, nil
}

// recycle tries the stream's own release chain first for stream-cacheable
// kinds, then falls back to the global cache.
func (a *Allocator) recycle(stream *Stream, info AllocInfo) (uintptr, string) {
	a.mallocMu.Lock()
	defer a.mallocMu.Unlock()

	if info.Kind.streamCacheable() && stream != nil {
		if ptr, ok := recycleLocal(stream.releaseChain, info); ok {
			return ptr, "reused local"
		}
	}

	if ptr, ok := a.cache.pop(info); ok {
		return ptr, "reused global"
	}

	return 0, ""
}

// allocateFresh calls the raw backend, retrying exactly once after a trim
// if the first attempt runs out of memory. The caller's main lock is
// released for the duration of each raw call.
func (a *Allocator) allocateFresh(info AllocInfo) (uintptr, error) {
	ptr, err := a.rawAlloc(info)
	if err == nil {
		return ptr, nil
	}

	if trimErr := a.Trim(true); trimErr != nil {
		a.logger.Error("jitalloc: trim during allocation retry failed", slog.Any("error", trimErr))
	}

	ptr, err = a.rawAlloc(info)
	if err != nil {
		return 0, errors.Wrapf(ErrOutOfMemory, "allocate %d bytes of %s memory", info.Size, info.Kind)
	}
	return ptr, nil
}

func (a *Allocator) rawAlloc(info AllocInfo) (uintptr, error) {
	defer a.unlockMain()()

	switch info.Kind {
	case Host, HostAsync:
		return a.backend.AlignedAlloc(info.Size)
	case HostPinned:
		return a.backend.PinnedAlloc(info.Size)
	case Device:
		return a.backend.DeviceAlloc(info.Device, info.Size)
	case Managed:
		return a.backend.ManagedAlloc(info.Size, false)
	case ManagedReadMostly:
		return a.backend.ManagedAlloc(info.Size, true)
	default:
		internalBug("allocate: unhandled AllocKind %d", info.Kind)
		panic("unreachable")
	}
}
