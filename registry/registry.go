// Package registry implements jitalloc.DeviceRegistry over a fixed list of
// driver device ids, resolved once at startup rather than re-queried from
// the driver on every call.
package registry

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/extensions/v2/khr_external_memory_capabilities"
)

// Device describes one registered device: the driver id the concrete
// Backend expects, plus which external memory handle types it advertises.
// Migrate's Host<->Device paths register host memory for DMA; a device
// that cannot export/import any external memory handle type is a signal
// that cross-device sharing of that registration may not be possible.
type Device struct {
	ID                        int
	ExternalMemoryHandleTypes khr_external_memory_capabilities.ExternalMemoryHandleTypeFlags
}

// Registry is a DeviceRegistry backed by a fixed slice of devices. Index i
// is jitalloc's logical device index; Registry resolves it to
// devices[i].ID, the identifier the concrete Backend expects.
type Registry struct {
	devices []Device
}

// New returns a Registry over devices, in logical-index order.
func New(devices []Device) *Registry {
	return &Registry{devices: append([]Device(nil), devices...)}
}

func (r *Registry) Len() int { return len(r.devices) }

func (r *Registry) DeviceID(index int) (int, error) {
	d, err := r.at(index)
	if err != nil {
		return 0, err
	}
	return d.ID, nil
}

func (r *Registry) All() []int {
	ids := make([]int, len(r.devices))
	for i, d := range r.devices {
		ids[i] = d.ID
	}
	return ids
}

// ExternalMemoryHandleTypes reports which external memory handle types the
// device at index supports, for callers deciding whether a host
// registration made for one device's DMA engine can be reused by another.
func (r *Registry) ExternalMemoryHandleTypes(index int) (khr_external_memory_capabilities.ExternalMemoryHandleTypeFlags, error) {
	d, err := r.at(index)
	if err != nil {
		return 0, err
	}
	return d.ExternalMemoryHandleTypes, nil
}

func (r *Registry) at(index int) (Device, error) {
	if index < 0 || index >= len(r.devices) {
		return Device{}, errors.Newf("registry: device index %d out of range [0, %d)", index, len(r.devices))
	}
	return r.devices[index], nil
}
