package jitalloc

import "github.com/dolthub/swiss"

// releaseNode is one batch in a stream's ReleaseChain: a map of AllocInfo
// to a stack of pointers freed on that stream but not yet known-safe to
// hand to another stream. A node's contents only ever leave it by being
// handed back to Allocate on the same stream (recycleLocal) or moved into
// the global cache on flush; they are never freed directly back to a raw
// allocator from here.
type releaseNode struct {
	entries *swiss.Map[AllocInfo, []uintptr]
	next    *releaseNode
}

func newReleaseNode() *releaseNode {
	return &releaseNode{entries: swiss.NewMap[AllocInfo, []uintptr](8)}
}

func (n *releaseNode) push(info AllocInfo, ptr uintptr) {
	stack, _ := n.entries.Get(info)
	n.entries.Put(info, append(stack, ptr))
}

// pop removes and returns a pointer matching info from this node only.
func (n *releaseNode) pop(info AllocInfo) (uintptr, bool) {
	stack, ok := n.entries.Get(info)
	if !ok || len(stack) == 0 {
		return 0, false
	}
	ptr := stack[len(stack)-1]
	stack = stack[:len(stack)-1]
	if len(stack) == 0 {
		n.entries.Delete(info)
	} else {
		n.entries.Put(info, stack)
	}
	return ptr, true
}

func (n *releaseNode) empty() bool {
	return n.entries.Count() == 0
}

// recycleLocal walks the chain head-first looking for a pointer matching
// info: only pointers queued on this exact stream are safe to hand back
// without crossing a stream-ordering hazard.
func recycleLocal(head *releaseNode, info AllocInfo) (uintptr, bool) {
	for node := head; node != nil; node = node.next {
		if ptr, ok := node.pop(info); ok {
			return ptr, true
		}
	}
	return 0, false
}

// flushInto moves every entry of n into cache, once the stream work that
// made them safe to reuse has actually drained.
func (n *releaseNode) flushInto(cache *globalCache) {
	n.entries.Iter(func(info AllocInfo, stack []uintptr) (stop bool) {
		cache.pushAll(info, stack)
		return false
	})
}
