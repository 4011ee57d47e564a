package jitalloc

import "golang.org/x/exp/slog"

// FreeFlush seals the stream's current head of pending frees behind a
// fresh empty head, then enqueues a host callback that — once the stream
// has drained everything submitted before this call — moves the sealed
// node's contents into the global cache under the malloc lock. Pointers
// reclaimed this way lose stream affinity and become globally reusable on
// any stream.
func (a *Allocator) FreeFlush(stream *Stream) error {
	if stream == nil {
		return nil
	}

	a.mallocMu.Lock()
	oldHead := stream.releaseChain
	if oldHead == nil || oldHead.empty() {
		a.mallocMu.Unlock()
		return nil
	}

	newHead := newReleaseNode()
	newHead.next = oldHead
	stream.releaseChain = newHead
	a.mallocMu.Unlock()

	a.logger.Debug("jitalloc: free_flush: scheduling reclamation", slog.String("backend", stream.Backend.String()))

	stream.EnqueueHostCallback(func() {
		a.mallocMu.Lock()
		defer a.mallocMu.Unlock()

		sealed := newHead.next
		if sealed == nil {
			return
		}
		sealed.flushInto(a.cache)
		newHead.next = nil
	})

	return nil
}
