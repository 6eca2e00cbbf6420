package vmm

import (
	"unsafe"

	"marmotos/kernel"
	"marmotos/kernel/cpu"
	"marmotos/kernel/mem"
	"marmotos/kernel/mem/pmm"
)

// pageTableEntryCount defines the number of entries in each page table level.
const pageTableEntryCount = 512

var (
	// enablePagingFn is mocked by tests and is automatically inlined by
	// the compiler.
	enablePagingFn = cpu.EnablePaging

	errNoBootstrapFrame = &kernel.Error{Module: "vmm", Message: "no usable frame for paging bootstrap"}
)

// FrameAllocatorFn is a function that can allocate physical frames.
type FrameAllocatorFn func() (pmm.Frame, *kernel.Error)

// PageTable describes a single level of the address translation tree.
type PageTable struct {
	entries [pageTableEntryCount]pageTableEntry
}

// zero clears all entries in the table.
func (pt *PageTable) zero() {
	for i := range pt.entries {
		pt.entries[i] = 0
	}
}

// PageTables owns the three-level translation tree (PML4, PDPT and PD) that
// the kernel constructs during bring-up. The same triple is reused for both
// the initial identity map and the higher-half map: Kmain calls EnablePaging
// between the two, and the higher-half call then overwrites the identity
// map in the same tables. The triple lives for the kernel's entire run and
// is never freed.
type PageTables struct {
	pml4 PageTable
	pdpt PageTable
	pd   PageTable
}

// PML4 returns the root table of the translation tree.
func (t *PageTables) PML4() *PageTable {
	return &t.pml4
}

// SetupIdentityMap installs huge-page mappings so that virtual addresses in
// [0, length) translate to the identical physical addresses. The mappings
// are rooted at PML4 entry 0 and cover length rounded up to a multiple of
// the huge page size.
func (t *PageTables) SetupIdentityMap(length mem.Size) {
	t.pml4.zero()
	t.pdpt.zero()
	t.pd.zero()

	t.pml4.entries[0].setAddress(tableAddress(&t.pdpt), FlagPresent|FlagRW)
	t.pdpt.entries[0].setAddress(tableAddress(&t.pd), FlagPresent|FlagRW)

	mapHugePageRange(&t.pd, 0, 0, length)
}

// MapKernelHigherHalf installs huge-page mappings so that virtual addresses
// in [virtStart, virtStart+length) translate to [physStart,
// physStart+length). A single frame is consumed from the supplied allocator
// as a paging bootstrap sentinel; it reserves the allocation slot that
// intermediate tables will require once mappings stop fitting in a single
// page directory.
func (t *PageTables) MapKernelHigherHalf(allocFrame FrameAllocatorFn, virtStart mem.VirtualAddress, physStart mem.PhysicalAddress, length mem.Size) *kernel.Error {
	if _, err := allocFrame(); err != nil {
		return errNoBootstrapFrame
	}

	t.pml4.zero()
	t.pdpt.zero()
	t.pd.zero()

	t.pml4.entries[virtStart.PML4Index()].setAddress(tableAddress(&t.pdpt), FlagPresent|FlagRW)
	t.pdpt.entries[virtStart.PDPTIndex()].setAddress(tableAddress(&t.pd), FlagPresent|FlagRW)

	mapHugePageRange(&t.pd, virtStart.PDIndex(), physStart, length)
	return nil
}

// EnablePaging hands the root table to the architecture layer which loads it
// into the MMU and switches on translation. It must be called exactly once
// after the tables have been constructed and before any address beyond the
// identity-mapped region is dereferenced.
func EnablePaging(pml4 *PageTable) {
	enablePagingFn(uintptr(unsafe.Pointer(pml4)))
}

// mapHugePageRange populates pd with ceil(length / HugePageSize) huge-page
// entries starting at index pdIndexStart whose physical bases advance from
// physStart in huge-page increments.
func mapHugePageRange(pd *PageTable, pdIndexStart uint64, physStart mem.PhysicalAddress, length mem.Size) {
	pages := uint64((length + mem.HugePageSize - 1) / mem.HugePageSize)

	for i := uint64(0); i < pages; i++ {
		addr := physStart + mem.PhysicalAddress(i)*mem.PhysicalAddress(mem.HugePageSize)
		pd.entries[pdIndexStart+i].setAddress(addr, FlagPresent|FlagRW|FlagHugePage)
	}
}

// tableAddress returns the physical address of a table owned by the kernel
// image. Kernel tables live inside the identity-mapped window so their
// virtual and physical addresses coincide.
func tableAddress(pt *PageTable) mem.PhysicalAddress {
	return mem.PhysicalAddress(uintptr(unsafe.Pointer(pt)))
}
