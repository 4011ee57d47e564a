package utils

import cerrors "github.com/cockroachdb/errors"

// ErrNotPowerOfTwo is returned by CheckPow2 when the value under test isn't
// a power of two.
var ErrNotPowerOfTwo error = cerrors.New("value must be a power of two")

// CheckPow2 verifies that number is a power of two, returning a wrapped
// ErrNotPowerOfTwo naming the offending value otherwise.
func CheckPow2(number uint, name string) error {
	if number == 0 || number&(number-1) != 0 {
		return cerrors.Wrapf(ErrNotPowerOfTwo, "%s is %d", name, number)
	}
	return nil
}

// RoundPow2 rounds x up to the next power of two. Passing 0 returns 0.
func RoundPow2(x uint64) uint64 {
	if x == 0 {
		return 0
	}
	x--
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x |= x >> 32
	return x + 1
}

// AlignUp rounds value up to the next multiple of alignment, which must be
// a power of two.
func AlignUp(value uint64, alignment uint64) uint64 {
	return (value + alignment - 1) &^ (alignment - 1)
}
