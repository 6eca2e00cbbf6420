// Package heap implements the early bump allocator that backs kernel
// allocations before a real memory manager is brought up. The allocator
// hands out chunks of a fixed static arena by monotonically advancing a
// cursor; freed memory is never reclaimed.
package heap

import (
	"sync/atomic"
	"unsafe"

	"marmotos/kernel/mem"
)

// Size defines the total capacity of the bump allocator arena.
const Size = 1 * 1024 * 1024

var (
	// arena is the backing storage for all early allocations. It is
	// over-sized by one page so that allocations can be served from a
	// page-aligned base regardless of where the Go linker places it.
	arena [Size + uintptr(mem.PageSize)]byte

	// arenaBase points to the first page-aligned byte inside the arena.
	arenaBase = alignUp(uintptr(unsafe.Pointer(&arena[0])), uintptr(mem.PageSize))

	// cursor tracks the next free arena offset. It only ever moves
	// forward; concurrent allocations race on the compare-and-swap below.
	cursor uint64

	// lastAllocErrorSize and lastAllocErrorAlign record the most recent
	// failed allocation request for post-mortem inspection.
	lastAllocErrorSize  uint64
	lastAllocErrorAlign uint64
)

// Init resets the allocator cursor. It is only sound to call before any
// allocation has occurred; it exists so test harnesses can restore a
// pristine arena between runs.
func Init() {
	atomic.StoreUint64(&cursor, 0)
}

// Alloc reserves size bytes aligned to align and returns a pointer to the
// reserved block. The align argument must be a power of two. Alloc returns
// nil when the arena is exhausted or the request overflows; the failed
// request is recorded and can be retrieved via LastAllocError.
func Alloc(size, align uintptr) unsafe.Pointer {
	alignMask := uint64(align - 1)

	for {
		cur := atomic.LoadUint64(&cursor)
		aligned := (cur + alignMask) &^ alignMask

		next := aligned + uint64(size)
		if next < aligned || next > Size {
			RecordAllocError(size, align)
			return nil
		}

		if atomic.CompareAndSwapUint64(&cursor, cur, next) {
			return unsafe.Pointer(arenaBase + uintptr(aligned))
		}
	}
}

// Dealloc releases a block previously returned by Alloc. The bump allocator
// never reclaims memory so this is a no-op.
func Dealloc(ptr unsafe.Pointer, size, align uintptr) {}

// RecordAllocError records a failed allocation request. It is also invoked
// by the runtime glue when an allocation failure propagates out of the
// allocator proper.
func RecordAllocError(size, align uintptr) {
	atomic.StoreUint64(&lastAllocErrorSize, uint64(size))
	atomic.StoreUint64(&lastAllocErrorAlign, uint64(align))
}

// LastAllocError returns the size and alignment of the most recently failed
// allocation request.
func LastAllocError() (size, align uintptr) {
	return uintptr(atomic.LoadUint64(&lastAllocErrorSize)),
		uintptr(atomic.LoadUint64(&lastAllocErrorAlign))
}

// UsedBytes returns the number of arena bytes consumed so far.
func UsedBytes() uint64 {
	return atomic.LoadUint64(&cursor)
}

func alignUp(value, align uintptr) uintptr {
	return (value + align - 1) &^ (align - 1)
}
