package jitalloc

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// Free returns ptr to the cache so a later Allocate can reuse it. A nil
// stream means there is no stream to defer the release through;
// Device/HostAsync pointers freed without a matching stream fall back to
// a synchronous sync-all-devices path before they're cached.
func (a *Allocator) Free(stream *Stream, ptr uintptr) error {
	if ptr == 0 {
		return nil
	}

	a.mallocMu.Lock()
	info, ok := a.live.lookup(ptr)
	if !ok {
		a.mallocMu.Unlock()
		return errors.Wrapf(ErrUnknownPointer, "free(0x%x)", ptr)
	}

	var drainedUnmap []pendingUnmap

	switch {
	case info.Kind == Host:
		// The OS allocator has no async hazard; push straight to the
		// global cache.
		a.cache.push(info, ptr)

	case info.Kind.globallyAccessible():
		// More than one backend can see this pointer, so it is never
		// safe to reuse until every device has drained.
		if err := a.syncAllThenCache(info, ptr); err != nil {
			return err
		}

	case info.Kind.streamCacheable() && stream != nil && stream.Backend == streamBackendFor(info.Kind):
		if stream.releaseChain == nil {
			stream.releaseChain = newReleaseNode()
		}
		stream.releaseChain.push(info, ptr)
		if stream.Backend == BackendGPU {
			drainedUnmap = a.unmap.drain()
		}

	default:
		// A stream-cacheable kind freed outside its matching stream.
		// The pointer may still be read by in-flight work, so the only
		// safe thing left to do is synchronize everything.
		if err := a.syncAllThenCache(info, ptr); err != nil {
			return err
		}
	}

	a.live.erase(ptr, info)
	a.mallocMu.Unlock()

	for _, pending := range drainedUnmap {
		if err := a.withMainUnlocked(func() error { return a.backend.HostUnregister(pending.ptr) }); err != nil {
			a.logger.Error("jitalloc: unregister failed while draining unmap queue", slog.Any("error", err))
		}
		if pending.alsoFree {
			if err := a.Free(stream, pending.ptr); err != nil {
				a.logger.Error("jitalloc: recursive free from unmap queue failed", slog.Any("error", err))
			}
		}
	}

	a.logger.Debug("jitalloc: free",
		slog.Uint64("ptr", uint64(ptr)),
		slog.String("kind", info.Kind.String()),
		slog.Uint64("size", info.Size),
	)

	return nil
}

func streamBackendFor(kind AllocKind) StreamBackend {
	if kind == HostAsync {
		return BackendCPUWorker
	}
	return BackendGPU
}

// syncAllThenCache blocks until every device has drained, then pushes ptr
// into the global cache. mallocMu must be held on entry; on success it is
// held again on return, on error it is left unlocked so the caller can
// return directly without double-unlocking.
func (a *Allocator) syncAllThenCache(info AllocInfo, ptr uintptr) error {
	a.mallocMu.Unlock()
	if err := a.withMainUnlocked(a.backend.SyncAllDevices); err != nil {
		return errors.Wrapf(err, "free(0x%x): sync-all-devices fallback", ptr)
	}
	a.mallocMu.Lock()
	a.cache.push(info, ptr)
	return nil
}
