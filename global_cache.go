package jitalloc

import "github.com/dolthub/swiss"

// globalCache is the per-process map from AllocInfo to a stack of
// pointers: it holds pointers that have lost stream affinity (freed Host
// pointers, or Device/HostAsync pointers that flushed through a
// releaseChain) and are reusable from any stream.
//
// It is backed by swiss.Map rather than a built-in Go map because open
// addressing avoids bucket-chasing under the churn pattern allocate/free
// produces on the hot path.
type globalCache struct {
	buckets *swiss.Map[AllocInfo, []uintptr]
}

func newGlobalCache() *globalCache {
	return &globalCache{buckets: swiss.NewMap[AllocInfo, []uintptr](64)}
}

// pop removes and returns a cached pointer for info, if any.
func (c *globalCache) pop(info AllocInfo) (uintptr, bool) {
	stack, ok := c.buckets.Get(info)
	if !ok || len(stack) == 0 {
		return 0, false
	}
	ptr := stack[len(stack)-1]
	stack = stack[:len(stack)-1]
	if len(stack) == 0 {
		c.buckets.Delete(info)
	} else {
		c.buckets.Put(info, stack)
	}
	return ptr, true
}

// push returns ptr to the cache bucket for info.
func (c *globalCache) push(info AllocInfo, ptr uintptr) {
	stack, _ := c.buckets.Get(info)
	c.buckets.Put(info, append(stack, ptr))
}

// pushAll appends a whole batch of pointers to info's bucket at once,
// used when a ReleaseChain node flushes into the global cache.
func (c *globalCache) pushAll(info AllocInfo, ptrs []uintptr) {
	if len(ptrs) == 0 {
		return
	}
	stack, _ := c.buckets.Get(info)
	c.buckets.Put(info, append(stack, ptrs...))
}

// drain empties the cache entirely, handing the caller every bucket to
// release back to the raw allocators. Used by trim.
func (c *globalCache) drain() map[AllocInfo][]uintptr {
	out := make(map[AllocInfo][]uintptr, c.buckets.Count())
	c.buckets.Iter(func(info AllocInfo, stack []uintptr) (stop bool) {
		out[info] = stack
		return false
	})
	c.buckets = swiss.NewMap[AllocInfo, []uintptr](64)
	return out
}

func (c *globalCache) residency(info AllocInfo) int {
	stack, ok := c.buckets.Get(info)
	if !ok {
		return 0
	}
	return len(stack)
}
