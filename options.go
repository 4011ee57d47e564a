package jitalloc

import "github.com/cockroachdb/errors"

// CreateFlags indicate specific allocator behaviors to activate or
// deactivate at construction time.
type CreateFlags int32

const (
	// CreateExternallySynchronized ensures that this Allocator will not
	// synchronize internally. The consumer must guarantee it is used from
	// only one goroutine at a time, or is synchronized some other way, in
	// exchange for skipping the malloc-lock overhead entirely.
	CreateExternallySynchronized CreateFlags = 1 << iota
	// CreateWithoutWorkerPool disables the CPU-worker-pool backend. Any
	// HostAsync allocation is then silently promoted to Host.
	CreateWithoutWorkerPool
)

// CreateOptions configures a new Allocator. There is no config file or CLI
// surface for jitalloc; this struct literal is the entire configuration
// surface.
type CreateOptions struct {
	// Flags activates the CreateFlags above.
	Flags CreateFlags
	// VectorWidthLanes is the host platform's SIMD vector width in lanes,
	// used by roundSize's alignment rule for Host/HostAsync allocations.
	// Zero (or anything below 16) falls back to 64-byte alignment.
	VectorWidthLanes int
}

func (o CreateOptions) validate() error {
	if o.VectorWidthLanes < 0 {
		return errors.Newf("jitalloc: CreateOptions.VectorWidthLanes must not be negative, got %d", o.VectorWidthLanes)
	}
	return nil
}
