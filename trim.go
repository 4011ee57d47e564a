package jitalloc

import "golang.org/x/exp/slog"

// Trim releases every pointer currently sitting in the global cache back
// to the raw allocator, and unregisters anything left in the unmap queue.
// warn triggers a one-time "this is expensive" warning on first call.
func (a *Allocator) Trim(warn bool) error {
	if warn && !a.trimWarned.Load() {
		a.logger.Warn("jitalloc: trim: exhausted the allocation cache and had to flush it; " +
			"this is expensive and will hurt performance")
		a.trimWarned.Store(true)
	}

	a.mallocMu.Lock()
	drainedCache := a.cache.drain()
	drainedUnmap := a.unmap.drain()
	a.mallocMu.Unlock()

	for _, pending := range drainedUnmap {
		if err := a.withMainUnlocked(func() error { return a.backend.HostUnregister(pending.ptr) }); err != nil {
			a.logger.Error("jitalloc: trim: unregister failed", slog.Any("error", err))
		}
		if pending.alsoFree {
			if err := a.Free(nil, pending.ptr); err != nil {
				a.logger.Error("jitalloc: trim: free from unmap queue failed", slog.Any("error", err))
			}
		}
	}

	var trimCount, trimSize [allocKindCount]uint64
	var firstErr error

	for info, ptrs := range drainedCache {
		for _, ptr := range ptrs {
			if err := a.rawFree(info, ptr); err != nil {
				a.logger.Error("jitalloc: trim: raw free failed",
					slog.String("kind", info.Kind.String()), slog.Any("error", err))
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			trimCount[info.Kind]++
			trimSize[info.Kind] += info.Size
		}
	}

	var total uint64
	for i := range trimCount {
		total += trimCount[i]
	}
	if total > 0 {
		for i := range trimCount {
			if trimCount[i] == 0 {
				continue
			}
			a.logger.Debug("jitalloc: trim: freed",
				slog.String("kind", AllocKind(i).String()),
				slog.Uint64("bytes", trimSize[i]),
				slog.Uint64("count", trimCount[i]),
			)
		}
	}

	return firstErr
}

// rawFree dispatches a single pointer back to the owning Backend method,
// with the caller's main lock released for the duration.
func (a *Allocator) rawFree(info AllocInfo, ptr uintptr) error {
	return a.withMainUnlocked(func() error {
		switch info.Kind {
		case Host, HostAsync:
			a.backend.AlignedFree(ptr)
		case HostPinned:
			a.backend.PinnedFree(ptr)
		case Device:
			a.backend.DeviceFree(info.Device, ptr)
		case Managed, ManagedReadMostly:
			a.backend.ManagedFree(ptr)
		default:
			internalBug("trim: unhandled AllocKind %d", info.Kind)
		}
		return nil
	})
}
