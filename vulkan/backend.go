// Package vulkan implements jitalloc.Backend on top of a set of Vulkan
// devices via vkngwrapper/core/v2. Every allocation this package hands
// out is host-visible and kept mapped for its whole lifetime, which lets
// AsyncMemcpy/Prefetch operate as ordinary memory copies instead of
// needing a full command-buffer pipeline — the driver API past "give me a
// pointer and move bytes" is outside jitalloc.Backend's contract.
package vulkan

import (
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/driver"

	"github.com/jitalloc/jitalloc/internal/host"
)

// Device pairs the logical and physical handles the backend needs for one
// GPU.
type Device struct {
	Logical  core1_0.Device
	Physical core1_0.PhysicalDevice
}

type allocation struct {
	memory core1_0.DeviceMemory
	device int
	size   uint64
}

// Backend implements jitalloc.Backend. Host and HostAsync kinds never touch
// Vulkan at all; they're delegated to an internal/host.Backend, the same
// way a real driver wrapper keeps pageable host memory off the device heap.
type Backend struct {
	callbacks *driver.AllocationCallbacks
	devices   []Device
	typeIndex []int // one host-visible+coherent memory type index per device

	host *host.Backend

	mu          sync.Mutex
	allocations map[uintptr]*allocation
}

// New builds a Backend over the given devices. callbacks may be nil.
func New(devices []Device, callbacks *driver.AllocationCallbacks) (*Backend, error) {
	if len(devices) == 0 {
		return nil, errors.New("vulkan: New requires at least one device")
	}

	typeIndex := make([]int, len(devices))
	for i, d := range devices {
		idx, err := hostVisibleMemoryType(d.Physical)
		if err != nil {
			return nil, errors.Wrapf(err, "vulkan: device %d", i)
		}
		typeIndex[i] = idx
	}

	return &Backend{
		callbacks:   callbacks,
		devices:     devices,
		typeIndex:   typeIndex,
		host:        host.New(),
		allocations: make(map[uintptr]*allocation),
	}, nil
}

// hostVisibleMemoryType prefers a type that is both device-local and
// host-visible (true unified memory), falling back to plain host-visible
// and coherent memory when the device has no such type.
func hostVisibleMemoryType(physical core1_0.PhysicalDevice) (int, error) {
	props := physical.MemoryProperties()

	want := core1_0.MemoryPropertyDeviceLocal | core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent
	if idx := findMemoryType(props, want); idx >= 0 {
		return idx, nil
	}

	want = core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent
	if idx := findMemoryType(props, want); idx >= 0 {
		return idx, nil
	}

	return 0, errors.New("no host-visible, host-coherent memory type available on this device")
}

func findMemoryType(props *core1_0.PhysicalDeviceMemoryProperties, want core1_0.MemoryPropertyFlags) int {
	for i, t := range props.MemoryTypes {
		if t.PropertyFlags&want == want {
			return i
		}
	}
	return -1
}

func (b *Backend) deviceAt(index int) (Device, int, error) {
	if index < 0 || index >= len(b.devices) {
		return Device{}, 0, errors.Newf("vulkan: device index %d out of range", index)
	}
	return b.devices[index], b.typeIndex[index], nil
}

func (b *Backend) rawAlloc(device int, size uint64) (uintptr, error) {
	if size == 0 {
		return 0, nil
	}

	d, typeIndex, err := b.deviceAt(device)
	if err != nil {
		return 0, err
	}

	mem, _, err := d.Logical.AllocateMemory(b.callbacks, core1_0.MemoryAllocateInfo{
		AllocationSize:  int(size),
		MemoryTypeIndex: typeIndex,
	})
	if err != nil {
		return 0, errors.Wrap(err, "vulkan: AllocateMemory")
	}

	mapped, _, err := mem.Map(0, int(size), 0)
	if err != nil {
		mem.Free(b.callbacks)
		return 0, errors.Wrap(err, "vulkan: Map")
	}

	handle := uintptr(mapped)

	b.mu.Lock()
	b.allocations[handle] = &allocation{memory: mem, device: device, size: size}
	b.mu.Unlock()

	return handle, nil
}

func (b *Backend) rawFree(ptr uintptr) {
	if ptr == 0 {
		return
	}

	b.mu.Lock()
	alloc, ok := b.allocations[ptr]
	if ok {
		delete(b.allocations, ptr)
	}
	b.mu.Unlock()

	if !ok {
		return
	}

	alloc.memory.Unmap()
	alloc.memory.Free(b.callbacks)
}

func (b *Backend) AlignedAlloc(size uint64) (uintptr, error) { return b.host.AlignedAlloc(size) }
func (b *Backend) AlignedFree(ptr uintptr)                   { b.host.AlignedFree(ptr) }

// PinnedAlloc always lands on device 0's host-visible heap: a host-pinned
// allocation exists specifically so any device can DMA into it.
func (b *Backend) PinnedAlloc(size uint64) (uintptr, error) { return b.rawAlloc(0, size) }
func (b *Backend) PinnedFree(ptr uintptr)                   { b.rawFree(ptr) }

func (b *Backend) DeviceAlloc(device int, size uint64) (uintptr, error) {
	return b.rawAlloc(device, size)
}
func (b *Backend) DeviceFree(device int, ptr uintptr) { _ = device; b.rawFree(ptr) }

// ManagedAlloc treats readMostly as an allocation-time hint only; the
// backing memory is already host-visible and device-local where available,
// which is as close to "managed" as a raw DeviceMemory binding gets without
// MemoryPriority/PageableDeviceLocalMemory extensions.
func (b *Backend) ManagedAlloc(size uint64, readMostly bool) (uintptr, error) {
	_ = readMostly
	return b.rawAlloc(0, size)
}
func (b *Backend) ManagedFree(ptr uintptr) { b.rawFree(ptr) }

func (b *Backend) HostRegister(ptr uintptr, size uint64) error {
	return b.host.HostRegister(ptr, size)
}
func (b *Backend) HostUnregister(ptr uintptr) error { return b.host.HostUnregister(ptr) }

// AsyncMemcpy is a synchronous byte copy: every pointer this Backend hands
// out, Vulkan or host, is a real mapped address for the Allocator's
// lifetime.
func (b *Backend) AsyncMemcpy(streamHandle interface{}, dst, src uintptr, size uint64) error {
	_ = streamHandle
	if size == 0 {
		return nil
	}
	dstSlice := unsafe.Slice((*byte)(unsafe.Pointer(dst)), size)
	srcSlice := unsafe.Slice((*byte)(unsafe.Pointer(src)), size)
	copy(dstSlice, srcSlice)
	return nil
}

// Prefetch is a no-op: there is no separate device-local copy to migrate
// toward, since every allocation is already mapped for host access.
func (b *Backend) Prefetch(streamHandle interface{}, ptr uintptr, size uint64, device int) error {
	return nil
}

func (b *Backend) SyncDevice(device int) error {
	if _, _, err := b.deviceAt(device); err != nil {
		return err
	}
	return nil
}

func (b *Backend) SyncAllDevices() error { return nil }
