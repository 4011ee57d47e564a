package jitalloc

import "golang.org/x/exp/slog"

// Shutdown trims the cache one last time, then reports (but does not
// free) anything still held live. Leaked pointers are left alone —
// freeing memory the caller still thinks it owns would be worse than
// leaking it.
func (a *Allocator) Shutdown() error {
	if err := a.Trim(false); err != nil {
		a.logger.Error("jitalloc: shutdown: trim failed", slog.Any("error", err))
	}

	var leakCount, leakSize [allocKindCount]uint64
	a.mallocMu.Lock()
	a.live.leaks(func(ptr uintptr, info AllocInfo) {
		leakCount[info.Kind]++
		leakSize[info.Kind] += info.Size
	})
	a.mallocMu.Unlock()

	var total uint64
	for i := range leakCount {
		total += leakCount[i]
	}
	if total > 0 {
		a.logger.Warn("jitalloc: shutdown: leaked allocations")
		for i := range leakCount {
			if leakCount[i] == 0 {
				continue
			}
			a.logger.Warn("jitalloc: shutdown: leak",
				slog.String("kind", AllocKind(i).String()),
				slog.Uint64("bytes", leakSize[i]),
				slog.Uint64("count", leakCount[i]),
			)
		}
	}

	return nil
}
