package vmm

import (
	"sync/atomic"

	"marmotos/kernel/cpu"
	"marmotos/kernel/kfmt"
)

var (
	// lastFaultAddr and lastFaultCode record the most recent page fault
	// for post-mortem diagnostics. Readers may observe a torn pair across
	// a concurrent fault; both values are purely diagnostic.
	lastFaultAddr uint64
	lastFaultCode uint64

	// cpuHaltFn is mocked by tests and is automatically inlined by the compiler.
	cpuHaltFn = cpu.Halt
)

// InitFaultLog clears the recorded fault state.
func InitFaultLog() {
	atomic.StoreUint64(&lastFaultAddr, 0)
	atomic.StoreUint64(&lastFaultCode, 0)
}

// RecordFault stores the fault address and error code of a page fault,
// overwriting any previously recorded fault.
func RecordFault(faultAddr, errorCode uint64) {
	atomic.StoreUint64(&lastFaultAddr, faultAddr)
	atomic.StoreUint64(&lastFaultCode, errorCode)
}

// LastFault returns the most recently recorded fault address and error code.
func LastFault() (faultAddr, errorCode uint64) {
	return atomic.LoadUint64(&lastFaultAddr), atomic.LoadUint64(&lastFaultCode)
}

// HandlePageFault is invoked by the interrupt gate when address translation
// fails. Page faults are not recoverable by the kernel core: the fault is
// recorded, a diagnostic is emitted and the CPU is halted.
func HandlePageFault(faultAddr, errorCode uint64) {
	RecordFault(faultAddr, errorCode)

	kfmt.Printf("\nPage fault while accessing address: 0x%16x\nReason: ", faultAddr)
	switch errorCode {
	case 0:
		kfmt.Printf("read from non-present page")
	case 1:
		kfmt.Printf("page protection violation (read)")
	case 2:
		kfmt.Printf("write to non-present page")
	case 3:
		kfmt.Printf("page protection violation (write)")
	case 4:
		kfmt.Printf("page-fault in user-mode")
	case 8:
		kfmt.Printf("page table has reserved bit set")
	case 16:
		kfmt.Printf("instruction fetch")
	default:
		kfmt.Printf("unknown")
	}
	kfmt.Printf("\n")

	cpuHaltFn()
}
