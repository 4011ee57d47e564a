package jitalloc

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// Migrate moves or copies the bytes at ptr into a new allocation of kind
// target, returning the new pointer. It requires a non-nil stream.
// move=true releases the source once the migration is safely in flight.
func (a *Allocator) Migrate(stream *Stream, ptr uintptr, target AllocKind, move bool) (uintptr, error) {
	if stream == nil {
		return 0, errors.Wrap(ErrNoActiveStream, "migrate")
	}

	a.mallocMu.Lock()
	info, ok := a.live.lookup(ptr)
	a.mallocMu.Unlock()
	if !ok {
		return 0, errors.Wrapf(ErrUnknownPointer, "migrate(0x%x)", ptr)
	}

	if info.Kind == target && (target != Device || info.Device == stream.Device) {
		return ptr, nil
	}

	// Host <-> HostAsync on the CPU-worker backend rewrites in place; it
	// never touches the raw allocation.
	if a.workerPoolEnabled && isHostHostAsyncPair(info.Kind, target) {
		if move {
			newInfo := info
			newInfo.Kind = target
			a.mallocMu.Lock()
			a.live.retag(ptr, newInfo)
			a.mallocMu.Unlock()
			return ptr, nil
		}
		return 0, errors.Wrap(ErrUnsupportedMigration, "migrate: Host<->HostAsync without move")
	}

	if stream.Backend != BackendGPU {
		return 0, errors.Wrap(ErrWrongBackend, "migrate: requires a GPU-backend stream for this kind pair")
	}
	if info.Kind == HostAsync || target == HostAsync {
		return 0, errors.Wrap(ErrUnsupportedMigration, "migrate: HostAsync cannot move across the GPU path")
	}

	switch {
	case info.Kind == Host:
		return a.migrateHostToDevice(stream, ptr, info, target, move)
	case target == Host:
		return a.migrateDeviceToHost(stream, ptr, info, move)
	default:
		return a.migrateDeviceToDevice(stream, ptr, info, target, move)
	}
}

func isHostHostAsyncPair(a, b AllocKind) bool {
	return (a == Host && b == HostAsync) || (a == HostAsync && b == Host)
}

func (a *Allocator) migrateHostToDevice(stream *Stream, src uintptr, srcInfo AllocInfo, target AllocKind, move bool) (uintptr, error) {
	dst, err := a.Allocate(stream, target, srcInfo.Size)
	if err != nil {
		return 0, errors.Wrap(err, "migrate: allocate destination")
	}

	regErr := a.withMainUnlocked(func() error { return a.backend.HostRegister(src, srcInfo.Size) })
	if regErr != nil {
		return 0, errors.Wrap(regErr, "migrate: register source for DMA")
	}

	copyErr := a.withMainUnlocked(func() error { return a.backend.AsyncMemcpy(stream.Handle, dst, src, srcInfo.Size) })
	if copyErr != nil {
		return 0, errors.Wrap(copyErr, "migrate: async copy host to device")
	}

	// The host callback that runs once the GPU has actually consumed the
	// copy cannot call driver APIs itself, so the source is handed to the
	// unmap queue instead: the next Trim, or the next deferred Free on a GPU
	// stream, unregisters it (and frees it too, if move).
	stream.EnqueueHostCallback(func() {
		a.mallocMu.Lock()
		a.unmap.push(move, src)
		a.mallocMu.Unlock()
	})

	a.logger.Debug("jitalloc: migrate host->device", slog.Uint64("src", uint64(src)), slog.Uint64("dst", uint64(dst)))
	return dst, nil
}

func (a *Allocator) migrateDeviceToHost(stream *Stream, src uintptr, srcInfo AllocInfo, move bool) (uintptr, error) {
	dst, err := a.Allocate(stream, Host, srcInfo.Size)
	if err != nil {
		return 0, errors.Wrap(err, "migrate: allocate host destination")
	}

	regErr := a.withMainUnlocked(func() error { return a.backend.HostRegister(dst, srcInfo.Size) })
	if regErr != nil {
		return 0, errors.Wrap(regErr, "migrate: register destination for DMA")
	}

	copyErr := a.withMainUnlocked(func() error { return a.backend.AsyncMemcpy(stream.Handle, dst, src, srcInfo.Size) })
	if copyErr != nil {
		return 0, errors.Wrap(copyErr, "migrate: async copy device to host")
	}

	stream.EnqueueHostCallback(func() {
		a.mallocMu.Lock()
		a.unmap.push(false, dst)
		a.mallocMu.Unlock()
	})

	if move {
		if err := a.Free(stream, src); err != nil {
			return 0, errors.Wrap(err, "migrate: free source after move")
		}
	}

	a.logger.Debug("jitalloc: migrate device->host", slog.Uint64("src", uint64(src)), slog.Uint64("dst", uint64(dst)))
	return dst, nil
}

func (a *Allocator) migrateDeviceToDevice(stream *Stream, src uintptr, srcInfo AllocInfo, target AllocKind, move bool) (uintptr, error) {
	dst, err := a.Allocate(stream, target, srcInfo.Size)
	if err != nil {
		return 0, errors.Wrap(err, "migrate: allocate destination")
	}

	copyErr := a.withMainUnlocked(func() error { return a.backend.AsyncMemcpy(stream.Handle, dst, src, srcInfo.Size) })
	if copyErr != nil {
		return 0, errors.Wrap(copyErr, "migrate: async copy")
	}

	if move {
		if err := a.Free(stream, src); err != nil {
			return 0, errors.Wrap(err, "migrate: free source after move")
		}
	}

	a.logger.Debug("jitalloc: migrate device->device", slog.Uint64("src", uint64(src)), slog.Uint64("dst", uint64(dst)))
	return dst, nil
}
