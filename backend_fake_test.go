package jitalloc

import (
	"sync"
	"unsafe"

	"github.com/cockroachdb/errors"
)

// fakeBackend is a hand-written, allocation-tracking Backend used across
// the root package's tests. It never talks to real hardware; every kind
// resolves to a plain Go byte slice, the same trick internal/host uses for
// its CPU-only implementation.
type fakeBackend struct {
	mu         sync.Mutex
	blocks     map[uintptr][]byte
	registered map[uintptr]bool

	allocCalls      int
	freeCalls       int
	syncAllCalls    int
	syncDeviceCalls int

	// failNextAlloc, if > 0, makes the next N raw allocations fail with
	// ErrOutOfMemory-shaped errors, used to exercise Allocate's trim-and-
	// retry path.
	failNextAlloc int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		blocks:     make(map[uintptr][]byte),
		registered: make(map[uintptr]bool),
	}
}

func (f *fakeBackend) rawAlloc(size uint64) (uintptr, error) {
	if size == 0 {
		return 0, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.allocCalls++
	if f.failNextAlloc > 0 {
		f.failNextAlloc--
		return 0, errors.New("fakeBackend: simulated allocation failure")
	}

	buf := make([]byte, size)
	ptr := uintptr(unsafe.Pointer(&buf[0]))
	f.blocks[ptr] = buf
	return ptr, nil
}

func (f *fakeBackend) rawFree(ptr uintptr) {
	if ptr == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.freeCalls++
	delete(f.blocks, ptr)
}

func (f *fakeBackend) AlignedAlloc(size uint64) (uintptr, error) { return f.rawAlloc(size) }
func (f *fakeBackend) AlignedFree(ptr uintptr)                   { f.rawFree(ptr) }

func (f *fakeBackend) PinnedAlloc(size uint64) (uintptr, error) { return f.rawAlloc(size) }
func (f *fakeBackend) PinnedFree(ptr uintptr)                   { f.rawFree(ptr) }

func (f *fakeBackend) DeviceAlloc(device int, size uint64) (uintptr, error) {
	_ = device
	return f.rawAlloc(size)
}
func (f *fakeBackend) DeviceFree(device int, ptr uintptr) { _ = device; f.rawFree(ptr) }

func (f *fakeBackend) ManagedAlloc(size uint64, readMostly bool) (uintptr, error) {
	_ = readMostly
	return f.rawAlloc(size)
}
func (f *fakeBackend) ManagedFree(ptr uintptr) { f.rawFree(ptr) }

func (f *fakeBackend) HostRegister(ptr uintptr, size uint64) error {
	_ = size
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered[ptr] = true
	return nil
}

func (f *fakeBackend) HostUnregister(ptr uintptr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.registered[ptr] {
		return errors.Newf("fakeBackend: 0x%x was never registered", ptr)
	}
	delete(f.registered, ptr)
	return nil
}

func (f *fakeBackend) AsyncMemcpy(streamHandle interface{}, dst, src uintptr, size uint64) error {
	_ = streamHandle
	if size == 0 {
		return nil
	}
	dstSlice := unsafe.Slice((*byte)(unsafe.Pointer(dst)), size)
	srcSlice := unsafe.Slice((*byte)(unsafe.Pointer(src)), size)
	copy(dstSlice, srcSlice)
	return nil
}

func (f *fakeBackend) Prefetch(streamHandle interface{}, ptr uintptr, size uint64, device int) error {
	return nil
}

func (f *fakeBackend) SyncDevice(device int) error {
	f.mu.Lock()
	f.syncDeviceCalls++
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) SyncAllDevices() error {
	f.mu.Lock()
	f.syncAllCalls++
	f.mu.Unlock()
	return nil
}

// immediateDispatcher runs every enqueued callback synchronously, so tests
// don't need to coordinate with a background goroutine to observe a
// FreeFlush or Migrate's deferred unmap callback.
type immediateDispatcher struct{}

func (immediateDispatcher) Enqueue(fn func()) { fn() }

// fakeRegistry is a minimal DeviceRegistry for Prefetch tests.
type fakeRegistry struct {
	ids []int
}

func (r *fakeRegistry) Len() int { return len(r.ids) }
func (r *fakeRegistry) DeviceID(index int) (int, error) {
	if index < 0 || index >= len(r.ids) {
		return 0, errors.Newf("fakeRegistry: index %d out of range", index)
	}
	return r.ids[index], nil
}
func (r *fakeRegistry) All() []int { return r.ids }
