package jitalloc

// DeviceRegistry is an indexable list of devices, used by Prefetch to
// resolve a logical device index to a driver device id and to broadcast a
// prefetch across every device. The registry package provides a concrete
// implementation over a fixed device list supplied at construction.
type DeviceRegistry interface {
	// Len returns the number of devices in the registry.
	Len() int
	// DeviceID resolves the registry's logical index to the driver's own
	// device identifier.
	DeviceID(index int) (int, error)
	// All returns every driver device id currently registered, in index
	// order, for broadcast prefetch.
	All() []int
}
