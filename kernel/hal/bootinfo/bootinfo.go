// Package bootinfo defines the handoff contract between the bootloader and
// the kernel. The bootloader fills in a BootInfo record via a Builder while
// probing the platform and hands the kernel a pointer to the built record.
// The record must be treated as immutable and must be validated before use.
//
// The record uses a fixed binary layout so it can be consumed from the other
// side of the boot trampoline:
//
//	FramebufferInfo: base (u64), size (u64), width/height/stride/bpp (u32 each)
//	memoryRegionsLen (u32), reserved (u32)
//	memoryRegions[128]: {start: u64, end: u64, kind: u32} each
package bootinfo

// MaxMemoryRegions defines the capacity of the inline memory region array
// that the bootloader hands to the kernel.
const MaxMemoryRegions = 128

// RegionKind describes the type of a memory region found by the bootloader.
type RegionKind uint32

const (
	// RegionUsable indicates RAM that is free for kernel use.
	RegionUsable RegionKind = iota + 1

	// RegionReserved indicates that the memory region is not available for use.
	RegionReserved

	// RegionAcpiReclaimable indicates a region holding ACPI tables that can
	// be reused once the tables have been parsed.
	RegionAcpiReclaimable

	// RegionAcpiNvs indicates memory that must be preserved when hibernating.
	RegionAcpiNvs

	// RegionMmio indicates a memory-mapped device region.
	RegionMmio
)

// String implements fmt.Stringer for RegionKind.
func (k RegionKind) String() string {
	switch k {
	case RegionUsable:
		return "usable"
	case RegionReserved:
		return "reserved"
	case RegionAcpiReclaimable:
		return "ACPI (reclaimable)"
	case RegionAcpiNvs:
		return "ACPI NVS"
	case RegionMmio:
		return "MMIO"
	default:
		return "unknown"
	}
}

// FramebufferInfo describes the framebuffer set up by the bootloader.
type FramebufferInfo struct {
	// The framebuffer physical address.
	Base uint64

	// The framebuffer size in bytes.
	Size uint64

	// Width and height in pixels.
	Width, Height uint32

	// Pixels per scanline. Must be at least equal to Width.
	Stride uint32

	// Bytes per pixel.
	BytesPerPixel uint32
}

// Valid returns true when the framebuffer descriptor looks coherent.
func (fb FramebufferInfo) Valid() bool {
	return fb.Base != 0 &&
		fb.Size != 0 &&
		fb.Width != 0 &&
		fb.Height != 0 &&
		fb.Stride >= fb.Width &&
		fb.BytesPerPixel != 0
}

// MemoryRegion describes one physical memory-map region passed to the kernel
// as the half-open range [Start, End).
type MemoryRegion struct {
	Start uint64
	End   uint64
	Kind  RegionKind
}

// Valid returns true when this region has a non-empty and ordered span.
func (r MemoryRegion) Valid() bool {
	return r.Start < r.End
}

// BootInfo is the handoff record between bootloader and kernel. The zero
// value describes an empty contract with no framebuffer and no regions.
type BootInfo struct {
	framebuffer      FramebufferInfo
	memoryRegionsLen uint32
	reserved         uint32
	memoryRegions    [MaxMemoryRegions]MemoryRegion
}

// Framebuffer returns the framebuffer descriptor handed off by the bootloader.
func (bi *BootInfo) Framebuffer() FramebufferInfo {
	return bi.framebuffer
}

// RegionCount returns the number of memory regions stored in the record.
func (bi *BootInfo) RegionCount() int {
	return int(bi.memoryRegionsLen)
}

// MemoryRegions returns a view over the populated prefix of the inline
// region array. A length larger than the array capacity yields an empty view
// so that a corrupt handoff cannot cause out-of-bounds region scans.
func (bi *BootInfo) MemoryRegions() []MemoryRegion {
	count := bi.RegionCount()
	if count > MaxMemoryRegions {
		return bi.memoryRegions[:0]
	}
	return bi.memoryRegions[:count]
}

// Validate checks the handoff invariants that the kernel relies on before it
// touches any of the record contents. The checks are performed in order:
// region count, framebuffer, individual regions.
func (bi *BootInfo) Validate() error {
	count := bi.RegionCount()
	if count > MaxMemoryRegions {
		return &RegionCountOverflowError{Count: count, Max: MaxMemoryRegions}
	}

	if !bi.framebuffer.Valid() {
		return ErrInvalidFramebuffer
	}

	for i := 0; i < count; i++ {
		if !bi.memoryRegions[i].Valid() {
			return &InvalidMemoryRegionError{Index: i}
		}
	}

	return nil
}

// Builder assembles a BootInfo record while the bootloader probes the
// platform. Build validates the assembled record; the kernel must not be
// entered if Build reports an error.
type Builder struct {
	bootInfo BootInfo
}

// NewBuilder returns a Builder wrapping an empty boot contract.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithFramebuffer replaces the framebuffer descriptor.
func (b *Builder) WithFramebuffer(fb FramebufferInfo) *Builder {
	b.bootInfo.framebuffer = fb
	return b
}

// PushMemoryRegion appends a memory region to the record. It fails if the
// inline region array is already full.
func (b *Builder) PushMemoryRegion(r MemoryRegion) error {
	count := b.bootInfo.RegionCount()
	if count >= MaxMemoryRegions {
		return &RegionCountOverflowError{Count: count + 1, Max: MaxMemoryRegions}
	}

	b.bootInfo.memoryRegions[count] = r
	b.bootInfo.memoryRegionsLen++
	return nil
}

// Build validates the assembled record and emits it. The returned BootInfo
// is immutable from the kernel's point of view.
func (b *Builder) Build() (*BootInfo, error) {
	if err := b.bootInfo.Validate(); err != nil {
		return nil, err
	}

	built := b.bootInfo
	return &built, nil
}
