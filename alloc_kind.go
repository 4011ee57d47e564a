package jitalloc

// AllocKind classifies a buffer by who may access it and which raw
// allocator path produced it. It is a closed set; Allocator code that
// switches on AllocKind treats an unmatched value as an internal bug
// (see errors.go) rather than a recoverable error.
type AllocKind int

const (
	// Host memory is plain aligned host memory, accessible only from the
	// CPU and never cached per-stream.
	Host AllocKind = iota
	// HostAsync is host memory tied to the CPU-worker-pool backend. It
	// behaves like Host except that frees are deferred through a
	// ReleaseChain the same way Device allocations are, because a
	// worker-pool task may still be reading it.
	HostAsync
	// HostPinned is host memory registered with the GPU driver for DMA.
	// It is accessible from the CPU and any GPU, and is never cached
	// per-stream because more than one backend can see it.
	HostPinned
	// Device memory lives on exactly one GPU and is cached per-stream.
	Device
	// Managed memory is unified CPU/GPU memory.
	Managed
	// ManagedReadMostly is Managed memory with a read-mostly access hint
	// applied at allocation time.
	ManagedReadMostly

	// allocKindCount must stay last; it sizes the per-kind arrays in
	// LiveTable's usage/watermark counters.
	allocKindCount
)

var allocKindNames = [allocKindCount]string{
	Host:              "host",
	HostAsync:         "host-async",
	HostPinned:        "host-pinned",
	Device:            "device",
	Managed:           "managed",
	ManagedReadMostly: "managed-read-mostly",
}

// AllKinds returns every concrete AllocKind, in declaration order. Used by
// callers (the stats package, mainly) that need to enumerate per-kind data
// without reaching into jitalloc's internal sentinel count.
func AllKinds() []AllocKind {
	return []AllocKind{Host, HostAsync, HostPinned, Device, Managed, ManagedReadMostly}
}

func (k AllocKind) String() string {
	if k < 0 || k >= allocKindCount {
		return "invalid"
	}
	return allocKindNames[k]
}

// globallyAccessible reports whether a pointer of this kind can be touched
// by more than one backend, and therefore must never be cached per-stream.
func (k AllocKind) globallyAccessible() bool {
	switch k {
	case HostPinned, Managed, ManagedReadMostly:
		return true
	default:
		return false
	}
}

// streamCacheable reports whether frees of this kind may be deferred
// through a per-stream ReleaseChain rather than pushed straight to the
// global cache.
func (k AllocKind) streamCacheable() bool {
	switch k {
	case Device, HostAsync:
		return true
	default:
		return false
	}
}
