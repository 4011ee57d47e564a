package jitalloc

// StreamBackend names which execution backend a Stream drains on.
type StreamBackend int

const (
	// BackendGPU streams are drained by a GPU driver executing submitted
	// work in order.
	BackendGPU StreamBackend = iota
	// BackendCPUWorker streams are drained by the cooperative worker pool
	// (internal/worker).
	BackendCPUWorker
)

func (b StreamBackend) String() string {
	switch b {
	case BackendGPU:
		return "gpu"
	case BackendCPUWorker:
		return "cpu-worker"
	default:
		return "invalid"
	}
}

// Dispatcher runs fn once every unit of work enqueued on a stream before it
// has finished executing. Implementations: vulkan.Dispatcher for GPU
// streams, worker.Queue for CPU-worker streams.
type Dispatcher interface {
	Enqueue(fn func())
}

// Stream is an ordered queue of asynchronous work on one backend,
// identified by a driver Handle, with its own head of pending-free
// batches (releaseChain).
//
// jitalloc takes *Stream as an explicit parameter on every Allocator call
// that needs one, rather than modeling it as ambient per-thread state.
type Stream struct {
	// Backend is this stream's execution backend; Allocate and Migrate
	// reject a Stream whose Backend doesn't match the requested AllocKind,
	// while Free falls back to synchronizing every device.
	Backend StreamBackend
	// Device is the GPU device index this stream runs on; meaningless for
	// BackendCPUWorker streams.
	Device int
	// Handle is the backend-specific stream/queue handle (e.g. a Vulkan
	// queue or command buffer), opaque to jitalloc itself.
	Handle interface{}

	dispatcher Dispatcher
	// releaseChain is the head of this stream's pending-free batches.
	// Mutated only while the owning Allocator's malloc lock is held.
	releaseChain *releaseNode
}

// NewStream constructs a Stream bound to the given dispatcher, which is how
// EnqueueHostCallback is actually realized for this backend.
func NewStream(backend StreamBackend, device int, handle interface{}, dispatcher Dispatcher) *Stream {
	return &Stream{
		Backend:    backend,
		Device:     device,
		Handle:     handle,
		dispatcher: dispatcher,
	}
}

// EnqueueHostCallback runs fn once every unit of work submitted to this
// stream before this call has finished executing, exactly once.
func (s *Stream) EnqueueHostCallback(fn func()) {
	s.dispatcher.Enqueue(fn)
}
