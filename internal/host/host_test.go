package host

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func bytesView(ptr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n)
}

func TestAlignedAllocReturnsAlignedUsablePointer(t *testing.T) {
	b := New()

	ptr, err := b.AlignedAlloc(256)
	require.NoError(t, err)
	require.NotZero(t, ptr)
	require.Zero(t, ptr%defaultAlignment)

	b.AlignedFree(ptr)
}

func TestAlignedAllocZeroSizeReturnsNullPointer(t *testing.T) {
	b := New()
	ptr, err := b.AlignedAlloc(0)
	require.NoError(t, err)
	require.Zero(t, ptr)
}

func TestHostRegisterRejectsDoubleRegistration(t *testing.T) {
	b := New()
	ptr, err := b.AlignedAlloc(64)
	require.NoError(t, err)

	require.NoError(t, b.HostRegister(ptr, 64))
	require.Error(t, b.HostRegister(ptr, 64))

	require.NoError(t, b.HostUnregister(ptr))
	require.Error(t, b.HostUnregister(ptr))
}

func TestAsyncMemcpyCopiesBytes(t *testing.T) {
	b := New()

	src, err := b.AlignedAlloc(16)
	require.NoError(t, err)
	dst, err := b.AlignedAlloc(16)
	require.NoError(t, err)

	srcBytes := bytesView(src, 16)
	for i := range srcBytes {
		srcBytes[i] = byte(i + 1)
	}

	require.NoError(t, b.AsyncMemcpy(nil, dst, src, 16))

	dstBytes := bytesView(dst, 16)
	require.Equal(t, srcBytes, dstBytes)
}

func TestDeviceAndManagedAllocDelegateToTheSamePool(t *testing.T) {
	b := New()

	devPtr, err := b.DeviceAlloc(0, 32)
	require.NoError(t, err)
	require.NotZero(t, devPtr)
	b.DeviceFree(0, devPtr)

	mgPtr, err := b.ManagedAlloc(32, true)
	require.NoError(t, err)
	require.NotZero(t, mgPtr)
	b.ManagedFree(mgPtr)
}
