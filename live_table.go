package jitalloc

import "github.com/dolthub/swiss"

// liveTable is the per-process map from pointer to AllocInfo identifying
// every currently-owned pointer, plus the per-kind usage and
// high-water-mark counters every public operation must keep consistent.
type liveTable struct {
	entries   *swiss.Map[uintptr, AllocInfo]
	usage     [allocKindCount]uint64
	watermark [allocKindCount]uint64
}

func newLiveTable() *liveTable {
	return &liveTable{entries: swiss.NewMap[uintptr, AllocInfo](64)}
}

func (t *liveTable) insert(ptr uintptr, info AllocInfo) {
	t.entries.Put(ptr, info)
	t.usage[info.Kind] += info.Size
	if t.usage[info.Kind] > t.watermark[info.Kind] {
		t.watermark[info.Kind] = t.usage[info.Kind]
	}
}

func (t *liveTable) lookup(ptr uintptr) (AllocInfo, bool) {
	return t.entries.Get(ptr)
}

// erase removes ptr's entry and decrements its kind's usage counter. The
// caller must already have looked up info via lookup.
func (t *liveTable) erase(ptr uintptr, info AllocInfo) {
	t.entries.Delete(ptr)
	t.usage[info.Kind] -= info.Size
}

// retag rewrites the AllocInfo stored for ptr and moves its size from the
// old kind's usage counter to the new kind's, used by Migrate's
// Host<->HostAsync in-place rewrite.
func (t *liveTable) retag(ptr uintptr, info AllocInfo) {
	if old, ok := t.entries.Get(ptr); ok {
		t.usage[old.Kind] -= old.Size
	}
	t.entries.Put(ptr, info)
	t.usage[info.Kind] += info.Size
	if t.usage[info.Kind] > t.watermark[info.Kind] {
		t.watermark[info.Kind] = t.usage[info.Kind]
	}
}

func (t *liveTable) count() int {
	return t.entries.Count()
}

// leaks calls fn once per remaining entry, used by Shutdown's leak report.
func (t *liveTable) leaks(fn func(ptr uintptr, info AllocInfo)) {
	t.entries.Iter(func(ptr uintptr, info AllocInfo) (stop bool) {
		fn(ptr, info)
		return false
	})
}
