// Package allocator implements the physical frame allocators used by the
// kernel. The boot allocator implemented here hands out frames by walking
// the boot memory map in order; it cannot free and exists to carry the
// kernel until a proper allocator takes over the remaining frames.
package allocator

import (
	"marmotos/kernel"
	"marmotos/kernel/hal/bootinfo"
	"marmotos/kernel/kfmt"
	"marmotos/kernel/mem"
	"marmotos/kernel/mem/pmm"
)

var errBootAllocOutOfMemory = &kernel.Error{Module: "boot_mem_alloc", Message: "out of memory"}

// BootFrameAllocator implements a rudimentary physical memory allocator
// which is used to bootstrap the kernel.
//
// The allocator uses the memory region information provided by the
// bootloader to detect free memory blocks and return the next available
// free frame. It maintains a cursor into the region list and a candidate
// address inside the current region; frames are emitted in strictly
// ascending physical order and each frame lies entirely within a single
// usable region.
//
// Due to the way that the allocator works, it is not possible to free
// allocated frames. Once the kernel is properly initialized, the remaining
// blocks will be handed over to a more advanced memory allocator that does
// support freeing.
type BootFrameAllocator struct {
	// regions is the memory map handed off by the bootloader; it holds
	// regions of every kind, and only usable ones serve allocations.
	regions []bootinfo.MemoryRegion

	// regionIndex tracks the region that allocations are served from.
	regionIndex int

	// next tracks the start address of the next candidate frame.
	next mem.PhysicalAddress

	// allocCount tracks the total number of allocated frames.
	allocCount uint64
}

// NewBootFrameAllocator creates a frame allocator over the supplied memory
// map. The allocator advances to the first usable region with a non-empty
// span and seeds its candidate frame at that region's page-aligned start.
func NewBootFrameAllocator(regions []bootinfo.MemoryRegion) *BootFrameAllocator {
	alloc := &BootFrameAllocator{regions: regions}
	alloc.advanceToUsableRegion()
	return alloc
}

// AllocFrame reserves the next available free frame and returns it.
// AllocFrame returns an error if no more memory can be allocated. It never
// sleeps or blocks.
func (alloc *BootFrameAllocator) AllocFrame() (pmm.Frame, *kernel.Error) {
	for {
		if alloc.regionIndex >= len(alloc.regions) {
			return pmm.InvalidFrame, errBootAllocOutOfMemory
		}

		region := alloc.regions[alloc.regionIndex]

		// The region start may not be page-aligned; the candidate frame
		// can also trail the region start after a region switch.
		if alignedStart := alignUp(mem.PhysicalAddress(region.Start)); alloc.next < alignedStart {
			alloc.next = alignedStart
		}

		if uint64(alloc.next)+uint64(mem.PageSize) <= region.End {
			frame := pmm.FrameFromAddress(alloc.next)
			alloc.next += mem.PhysicalAddress(mem.PageSize)
			alloc.allocCount++
			return frame, nil
		}

		alloc.regionIndex++
		alloc.advanceToUsableRegion()
	}
}

// AllocCount returns the total number of frames handed out so far.
func (alloc *BootFrameAllocator) AllocCount() uint64 {
	return alloc.allocCount
}

// advanceToUsableRegion skips the region cursor forward to the next usable
// region with a non-empty span and seeds the candidate frame address.
func (alloc *BootFrameAllocator) advanceToUsableRegion() {
	for ; alloc.regionIndex < len(alloc.regions); alloc.regionIndex++ {
		region := alloc.regions[alloc.regionIndex]
		if region.Kind == bootinfo.RegionUsable && region.Start < region.End {
			alloc.next = alignUp(mem.PhysicalAddress(region.Start))
			return
		}
	}
}

// PrintMemoryMap scans the memory region information provided by the
// bootloader and prints out the system's memory map.
func (alloc *BootFrameAllocator) PrintMemoryMap() {
	kfmt.Printf("[boot_mem_alloc] system memory map:\n")
	var totalFree mem.Size
	for _, region := range alloc.regions {
		kfmt.Printf("\t[0x%10x - 0x%10x], size: %10d, type: %s\n", region.Start, region.End, region.End-region.Start, region.Kind.String())

		if region.Kind == bootinfo.RegionUsable {
			totalFree += mem.Size(region.End - region.Start)
		}
	}
	kfmt.Printf("[boot_mem_alloc] available memory: %dKb\n", uint64(totalFree/mem.Kb))
}

func alignUp(addr mem.PhysicalAddress) mem.PhysicalAddress {
	return (addr + mem.PhysicalAddress(mem.PageSize) - 1) & ^(mem.PhysicalAddress(mem.PageSize) - 1)
}
