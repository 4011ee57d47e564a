package jitalloc

// KindSnapshot is one AllocKind's slice of a CacheSnapshot: how much is
// currently live, the high-water mark ever reached, and how many pointers
// of this kind are sitting idle in the global cache waiting for reuse.
type KindSnapshot struct {
	Kind           AllocKind
	Usage          uint64
	Watermark      uint64
	CacheResidency int
}

// CacheSnapshot is a point-in-time report across every AllocKind.
type CacheSnapshot struct {
	Kinds     []KindSnapshot
	LiveCount int
}

// Snapshot reports current usage, watermarks, and cache residency for every
// AllocKind. It takes the malloc lock only long enough to copy the
// counters out; it never blocks on a Backend call.
func (a *Allocator) Snapshot() CacheSnapshot {
	a.mallocMu.Lock()
	defer a.mallocMu.Unlock()

	snap := CacheSnapshot{LiveCount: a.live.count()}
	for _, kind := range AllKinds() {
		snap.Kinds = append(snap.Kinds, KindSnapshot{
			Kind:           kind,
			Usage:          a.live.usage[kind],
			Watermark:      a.live.watermark[kind],
			CacheResidency: a.cacheResidencyForKind(kind),
		})
	}
	return snap
}

// cacheResidencyForKind sums every bucket in the global cache whose AllocInfo
// has this Kind; device and size both vary the bucket key, so this has to
// walk the whole map rather than doing a single lookup.
func (a *Allocator) cacheResidencyForKind(kind AllocKind) int {
	total := 0
	a.cache.buckets.Iter(func(info AllocInfo, stack []uintptr) (stop bool) {
		if info.Kind == kind {
			total += len(stack)
		}
		return false
	})
	return total
}
