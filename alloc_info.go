package jitalloc

import "github.com/jitalloc/jitalloc/internal/utils"

// AllocInfo is the immutable descriptor that identifies both a live
// allocation and a cache bucket: two allocations with equal AllocInfo are
// fungible. Size is always a rounded power of two; Device is 0 for kinds
// whose locus isn't a specific GPU.
type AllocInfo struct {
	Kind   AllocKind
	Device int
	Size   uint64
}

// narrowAlignment is the alignment applied to every kind except wide-vector
// Host/HostAsync allocations: 64 bytes, satisfying both SIMD and GPU DMA
// requirements.
const narrowAlignment uint64 = 64

// roundSize rounds size up in two stages: first to a hardware-alignment
// multiple, then up to the next power of two, so two requests that land
// in the same bucket are always fungible. vectorWidthLanes is the number
// of SIMD lanes on the host platform Host/HostAsync allocations should be
// vector-aligned for; 0 or <16 falls back to the narrow 64-byte alignment
// every other kind uses.
func roundSize(kind AllocKind, size uint64, vectorWidthLanes int) uint64 {
	if size == 0 {
		return 0
	}

	alignment := narrowAlignment
	if (kind == Host || kind == HostAsync) && vectorWidthLanes >= 16 {
		// 8 bytes per lane (double-width) vector packet size.
		candidate := uint64(vectorWidthLanes) * 8
		if err := utils.CheckPow2(uint(candidate), "vector alignment"); err == nil {
			alignment = candidate
		}
		// A lane count that isn't a power of two would otherwise feed
		// AlignUp's bitmask trick a non-power-of-two alignment and
		// silently misalign the result;
		// falling back to narrowAlignment keeps the rounding correct.
	}

	size = utils.AlignUp(size, alignment)
	return utils.RoundPow2(size)
}
