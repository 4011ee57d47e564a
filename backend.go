package jitalloc

// Backend is the driver collaborator Allocator allocates raw memory
// through: raw host/device/pinned/managed allocation, host-to-device
// registration, async copy, prefetch, and device/all-device
// synchronization. jitalloc never talks to a GPU driver directly; it
// calls through this interface, which the vulkan package implements
// concretely and tests satisfy with a hand-written fake.
//
// Every method here can block on the driver or a stream; Allocator
// always calls these with its own caller-supplied lock released.
type Backend interface {
	// AlignedAlloc/AlignedFree serve Host and HostAsync.
	AlignedAlloc(size uint64) (uintptr, error)
	AlignedFree(ptr uintptr)

	// PinnedAlloc/PinnedFree serve HostPinned.
	PinnedAlloc(size uint64) (uintptr, error)
	PinnedFree(ptr uintptr)

	// DeviceAlloc/DeviceFree serve Device.
	DeviceAlloc(device int, size uint64) (uintptr, error)
	DeviceFree(device int, ptr uintptr)

	// ManagedAlloc serves Managed and ManagedReadMostly; readMostly
	// requests the read-mostly advisory be applied after allocation.
	ManagedAlloc(size uint64, readMostly bool) (uintptr, error)
	ManagedFree(ptr uintptr)

	// HostRegister/HostUnregister pin a host allocation for DMA, used by
	// Migrate's Host<->GPU-accessible paths.
	HostRegister(ptr uintptr, size uint64) error
	HostUnregister(ptr uintptr) error

	// AsyncMemcpy issues a copy of size bytes from src to dst on the given
	// stream handle, returning once the copy has been submitted (not
	// necessarily completed).
	AsyncMemcpy(streamHandle interface{}, dst, src uintptr, size uint64) error

	// Prefetch issues an asynchronous prefetch of a managed region toward
	// device (device -1 stands for the CPU).
	Prefetch(streamHandle interface{}, ptr uintptr, size uint64, device int) error

	// SyncDevice blocks until all outstanding work on device has
	// completed. SyncAllDevices does the same across every device.
	SyncDevice(device int) error
	SyncAllDevices() error
}
