package jitalloc

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// Prefetch asks the backend to start moving ptr's pages toward device
// ahead of use. device follows one convention throughout: -1 means the
// CPU, -2 means every registered device, and anything else is a logical
// index into the DeviceRegistry. Only Managed and ManagedReadMostly
// pointers can be prefetched.
func (a *Allocator) Prefetch(stream *Stream, ptr uintptr, device int) error {
	if stream == nil || stream.Backend != BackendGPU {
		return errors.Wrap(ErrNoActiveStream, "prefetch: requires an active GPU stream")
	}

	a.mallocMu.Lock()
	info, ok := a.live.lookup(ptr)
	a.mallocMu.Unlock()
	if !ok {
		return errors.Wrapf(ErrUnknownPointer, "prefetch(0x%x)", ptr)
	}
	if info.Kind != Managed && info.Kind != ManagedReadMostly {
		return errors.Wrap(ErrInvalidKindForPrefetch, "prefetch")
	}

	const cpuDevice = -1
	const allDevices = -2

	var targets []int
	switch device {
	case cpuDevice:
		targets = []int{cpuDevice}
	case allDevices:
		if a.registry == nil {
			targets = nil
		} else {
			targets = a.registry.All()
		}
	default:
		if a.registry == nil {
			return errors.Newf("prefetch: no device registry configured, cannot resolve device index %d", device)
		}
		id, err := a.registry.DeviceID(device)
		if err != nil {
			return errors.Wrapf(err, "prefetch: invalid device index %d", device)
		}
		targets = []int{id}
	}

	for _, id := range targets {
		if err := a.withMainUnlocked(func() error {
			return a.backend.Prefetch(stream.Handle, ptr, info.Size, id)
		}); err != nil {
			return errors.Wrapf(err, "prefetch(0x%x) -> device %d", ptr, id)
		}
	}

	a.logger.Debug("jitalloc: prefetch",
		slog.Uint64("ptr", uint64(ptr)),
		slog.Int("device", device),
		slog.Int("targets", len(targets)),
	)
	return nil
}
