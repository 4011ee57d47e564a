package vulkan

import "github.com/jitalloc/jitalloc/internal/worker"

// syncer is the subset of Backend a Dispatcher needs: enough to block until
// a device has drained. Backend satisfies it directly.
type syncer interface {
	SyncDevice(device int) error
}

// Dispatcher implements jitalloc.Dispatcher for a GPU stream: each
// host callback runs on its own serial worker.Queue, and before running the
// callback the queue blocks on SyncDevice — standing in for waiting on the
// stream's fence, since jitalloc.Backend has no fence type of its own.
type Dispatcher struct {
	queue  *worker.Queue
	sync   syncer
	device int
}

// NewDispatcher returns a Dispatcher that serializes host callbacks for one
// stream on device.
func NewDispatcher(sync syncer, device int) *Dispatcher {
	return &Dispatcher{queue: worker.New(16), sync: sync, device: device}
}

func (d *Dispatcher) Enqueue(fn func()) {
	d.queue.Enqueue(func() {
		_ = d.sync.SyncDevice(d.device)
		fn()
	})
}

// Close stops accepting new callbacks and waits for the backlog to drain.
func (d *Dispatcher) Close() {
	d.queue.Close()
}
