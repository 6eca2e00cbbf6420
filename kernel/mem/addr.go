package mem

const (
	// tableIndexMask selects the 9 address bits that index into a single
	// page table level (512 entries per table).
	tableIndexMask = 0x1ff

	// pageOffsetMask selects the low 12 bits of a virtual address which
	// form the offset into a 4Kb page.
	pageOffsetMask = 0xfff
)

// PhysicalAddress describes an address in the physical address space.
type PhysicalAddress uint64

// AlignDown4K rounds the address down to the nearest page boundary.
func (addr PhysicalAddress) AlignDown4K() PhysicalAddress {
	return addr & ^(PhysicalAddress(PageSize) - 1)
}

// VirtualAddress describes an address in the virtual address space. On this
// architecture a virtual address encodes four 9-bit page table indices plus a
// 12-bit offset into the final page.
type VirtualAddress uint64

// PML4Index returns the index into the page-map level-4 table for this address.
func (addr VirtualAddress) PML4Index() uint64 {
	return uint64(addr>>39) & tableIndexMask
}

// PDPTIndex returns the index into the page-directory-pointer table for this address.
func (addr VirtualAddress) PDPTIndex() uint64 {
	return uint64(addr>>30) & tableIndexMask
}

// PDIndex returns the index into the page-directory table for this address.
func (addr VirtualAddress) PDIndex() uint64 {
	return uint64(addr>>21) & tableIndexMask
}

// PTIndex returns the index into the page table for this address.
func (addr VirtualAddress) PTIndex() uint64 {
	return uint64(addr>>12) & tableIndexMask
}

// PageOffset returns the offset of this address within its 4Kb page.
func (addr VirtualAddress) PageOffset() uint64 {
	return uint64(addr) & pageOffsetMask
}
