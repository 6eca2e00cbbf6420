package bootinfo

import "unsafe"

// Offsets into the packed handoff record. The bootloader emits the record
// with no padding: a 32-byte framebuffer block, a 4-byte region count plus
// 4 reserved bytes, then 20 bytes per memory region.
const (
	fbBaseOffset   = 0
	fbSizeOffset   = 8
	fbWidthOffset  = 16
	fbHeightOffset = 20
	fbStrideOffset = 24
	fbBppOffset    = 28

	regionCountOffset = 32
	regionsOffset     = 40
	regionStride      = 20

	regionStartOffset = 0
	regionEndOffset   = 8
	regionKindOffset  = 16
)

// FromPackedRecord decodes the packed handoff record located at ptr into a
// BootInfo. The caller retains no obligation towards the packed record once
// this function returns. The decoded record still carries the raw region
// count so that Validate and MemoryRegions can defend against a corrupt
// handoff.
func FromPackedRecord(ptr uintptr) *BootInfo {
	var bi BootInfo

	bi.framebuffer = FramebufferInfo{
		Base:          readU64(ptr + fbBaseOffset),
		Size:          readU64(ptr + fbSizeOffset),
		Width:         readU32(ptr + fbWidthOffset),
		Height:        readU32(ptr + fbHeightOffset),
		Stride:        readU32(ptr + fbStrideOffset),
		BytesPerPixel: readU32(ptr + fbBppOffset),
	}

	bi.memoryRegionsLen = readU32(ptr + regionCountOffset)

	count := int(bi.memoryRegionsLen)
	if count > MaxMemoryRegions {
		count = MaxMemoryRegions
	}

	for i := 0; i < count; i++ {
		entry := ptr + regionsOffset + uintptr(i)*regionStride
		bi.memoryRegions[i] = MemoryRegion{
			Start: readU64(entry + regionStartOffset),
			End:   readU64(entry + regionEndOffset),
			Kind:  RegionKind(readU32(entry + regionKindOffset)),
		}
	}

	return &bi
}

// The packed record is not guaranteed to align its 8-byte fields; this
// architecture tolerates unaligned loads.
func readU64(addr uintptr) uint64 {
	return *(*uint64)(unsafe.Pointer(addr))
}

func readU32(addr uintptr) uint32 {
	return *(*uint32)(unsafe.Pointer(addr))
}
