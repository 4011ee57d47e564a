// Package host provides a pure-Go Backend implementation: every AllocKind
// resolves to an aligned byte slice kept alive by a bookkeeping map, the
// same trick guda's MemoryPool uses to hand out "device" pointers without a
// real device. It serves two purposes: a fully working CPU-only Backend for
// programs with no GPU attached, and the host-side half of any Backend
// that layers a real driver on top for Device/Managed kinds.
package host

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
)

const defaultAlignment = 64

// Backend implements jitalloc.Backend entirely on top of the Go runtime's
// allocator. Device and Managed kinds are indistinguishable from Host here;
// there is nothing downstream to place them on.
type Backend struct {
	mu         sync.Mutex
	blocks     map[uintptr][]byte
	registered map[uintptr]uint64
}

// New returns a ready-to-use Backend.
func New() *Backend {
	return &Backend{
		blocks:     make(map[uintptr][]byte),
		registered: make(map[uintptr]uint64),
	}
}

func (b *Backend) alloc(size uint64, alignment uintptr) (uintptr, error) {
	if size == 0 {
		return 0, nil
	}

	buf := make([]byte, size+uint64(alignment)-1)
	raw := uintptr(unsafe.Pointer(&buf[0]))
	aligned := (raw + alignment - 1) &^ (alignment - 1)
	runtime.KeepAlive(buf)

	b.mu.Lock()
	b.blocks[aligned] = buf
	b.mu.Unlock()

	return aligned, nil
}

func (b *Backend) free(ptr uintptr) {
	if ptr == 0 {
		return
	}
	b.mu.Lock()
	delete(b.blocks, ptr)
	b.mu.Unlock()
}

func (b *Backend) AlignedAlloc(size uint64) (uintptr, error) { return b.alloc(size, defaultAlignment) }
func (b *Backend) AlignedFree(ptr uintptr)                   { b.free(ptr) }

func (b *Backend) PinnedAlloc(size uint64) (uintptr, error) { return b.alloc(size, defaultAlignment) }
func (b *Backend) PinnedFree(ptr uintptr)                   { b.free(ptr) }

func (b *Backend) DeviceAlloc(device int, size uint64) (uintptr, error) {
	_ = device
	return b.alloc(size, defaultAlignment)
}
func (b *Backend) DeviceFree(device int, ptr uintptr) { _ = device; b.free(ptr) }

func (b *Backend) ManagedAlloc(size uint64, readMostly bool) (uintptr, error) {
	_ = readMostly
	return b.alloc(size, defaultAlignment)
}
func (b *Backend) ManagedFree(ptr uintptr) { b.free(ptr) }

// HostRegister/HostUnregister only do bookkeeping here; there is no real
// DMA engine to pin memory for.
func (b *Backend) HostRegister(ptr uintptr, size uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.registered[ptr]; ok {
		return errors.Newf("host: pointer 0x%x is already registered", ptr)
	}
	b.registered[ptr] = size
	return nil
}

func (b *Backend) HostUnregister(ptr uintptr) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.registered[ptr]; !ok {
		return errors.Newf("host: pointer 0x%x was never registered", ptr)
	}
	delete(b.registered, ptr)
	return nil
}

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

// Prefetch is a no-op: everything is already host memory.
func (b *Backend) Prefetch(streamHandle interface{}, ptr uintptr, size uint64, device int) error {
	return nil
}

func (b *Backend) SyncDevice(device int) error  { return nil }
func (b *Backend) SyncAllDevices() error        { return nil }
