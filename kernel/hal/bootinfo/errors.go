package bootinfo

import "marmotos/kernel"

// ErrInvalidFramebuffer is returned by Validate when the framebuffer
// descriptor is missing or incoherent.
var ErrInvalidFramebuffer = &kernel.Error{Module: "bootinfo", Message: "invalid framebuffer descriptor"}

// InvalidMemoryRegionError is returned by Validate when a populated memory
// region fails its own validity check. Index identifies the first offending
// region.
type InvalidMemoryRegionError struct {
	Index int
}

// Error implements the error interface.
func (e *InvalidMemoryRegionError) Error() string {
	return "invalid memory region"
}

// RegionCountOverflowError is returned when the region count exceeds the
// capacity of the inline region array.
type RegionCountOverflowError struct {
	Count int
	Max   int
}

// Error implements the error interface.
func (e *RegionCountOverflowError) Error() string {
	return "memory region count overflow"
}
