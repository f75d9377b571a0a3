package format

// Align8 returns n aligned up to the next allocation unit.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
func Align8(n int) int {
	return (n + UnitMask) & ^UnitMask
}

// AlignLargePage returns n aligned up to the large page granularity (4KB).
//
// Example:
//
//	AlignLargePage(1)    = 4096
//	AlignLargePage(4096) = 4096
//	AlignLargePage(4097) = 8192
func AlignLargePage(n int) int {
	return (n + LargePageAlignmentMask) & ^LargePageAlignmentMask
}

// IsUnitAligned reports whether n is a multiple of the allocation unit.
func IsUnitAligned(n int) bool {
	return n&UnitMask == 0
}

// Units converts a byte count to allocation units, rounding up.
func Units(n int) int {
	return Align8(n) >> UnitShift
}
