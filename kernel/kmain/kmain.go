package kmain

import (
	"marmotos/kernel"
	"marmotos/kernel/cpu"
	"marmotos/kernel/driver/pit"
	"marmotos/kernel/hal/bootinfo"
	"marmotos/kernel/kfmt"
	"marmotos/kernel/mem"
	"marmotos/kernel/mem/heap"
	"marmotos/kernel/mem/pmm/allocator"
	"marmotos/kernel/mem/vmm"
	"marmotos/kernel/sched"
	"marmotos/kernel/task"
)

const (
	// identityMapLength covers the low physical window the kernel image
	// and the early page tables live in.
	identityMapLength = 4 * mem.Mb

	// higherHalfBase is the first mapped window in the canonical high
	// half of the virtual address space.
	higherHalfBase = mem.VirtualAddress(0xffff800000000000)

	// higherHalfPhysStart is the physical base the higher-half window
	// maps onto; the kernel is loaded at the 1Mb mark.
	higherHalfPhysStart = mem.PhysicalAddress(0x100000)

	// higherHalfLength is the size of the initial higher-half window.
	higherHalfLength = 2 * mem.Mb

	// timerFrequencyHz is the scheduler preemption frequency.
	timerFrequencyHz = 100
)

var (
	// pageTables is the translation tree used for both the identity and
	// the higher-half mappings. It is owned by the kernel for its entire
	// run and never freed.
	pageTables vmm.PageTables

	// scheduler is the single-owner run queue; the timer interrupt is
	// its only external mutator.
	scheduler sched.RoundRobinScheduler

	// The following functions are mocked by tests and are automatically
	// inlined by the compiler.
	panicFn            = kfmt.Panic
	enableInterruptsFn = cpu.EnableInterrupts
	idleLoopFn         = idleLoop
)

// Kmain is the only Go symbol that is visible (exported) from the rt0
// initialization code. It receives the boot contract assembled by the
// bootloader and wires up the memory subsystem, the timer and the scheduler
// before entering the idle loop.
//
// Kmain is not expected to return. If it does, the rt0 code will halt the CPU.
//
//go:noinline
func Kmain(info *bootinfo.BootInfo) {
	if err := info.Validate(); err != nil {
		panicFn(err)
		return
	}

	heap.Init()
	vmm.InitFaultLog()

	frames := allocator.NewBootFrameAllocator(info.MemoryRegions())
	frames.PrintMemoryMap()

	pageTables.SetupIdentityMap(identityMapLength)
	vmm.EnablePaging(pageTables.PML4())

	if err := pageTables.MapKernelHigherHalf(frames.AllocFrame, higherHalfBase, higherHalfPhysStart, higherHalfLength); err != nil {
		panicFn(err)
		return
	}

	cfg := pit.Init(timerFrequencyHz)
	kfmt.Printf("[kmain] timer configured at %dHz (divisor: %d)\n", cfg.FrequencyHz, cfg.Divisor)

	// Seed placeholder tasks until a real task loader is wired; their
	// entry points and stacks live inside the identity-mapped window.
	if err := seedInitialTasks(); err != nil {
		panicFn(err)
		return
	}

	enableInterruptsFn()
	idleLoopFn()
}

// seedInitialTasks populates the run queue with the initial task set.
func seedInitialTasks() *kernel.Error {
	initialTasks := []struct {
		entry, stackTop uint64
	}{
		{0x1000, 0x8000},
		{0x2000, 0x9000},
	}

	for _, seed := range initialTasks {
		id, err := scheduler.AddTask(task.New(seed.entry, seed.stackTop))
		if err != nil {
			return err
		}
		kfmt.Printf("[kmain] seeded task %d (entry: 0x%x)\n", id, seed.entry)
	}

	return nil
}

// idleLoop parks the CPU between timer interrupts; all scheduling progress
// happens inside HandleTimerTick.
func idleLoop() {
	for {
		cpu.Halt()
	}
}

// HandleTimerTick is invoked by the interrupt trampoline on every timer
// interrupt with a snapshot of the interrupted register state. It accounts
// the tick, banks the snapshot into the outgoing task, rotates the run queue
// and returns the register state the trampoline must restore. When no
// context switch is due the returned flag is false and the trampoline
// resumes the interrupted task untouched.
func HandleTimerTick(regs task.RegisterState) (task.RegisterState, bool) {
	pit.HandleTimerInterrupt()

	scheduler.SaveCurrentRegisters(regs)
	if _, switched := scheduler.OnTimerTick(); !switched {
		return task.RegisterState{}, false
	}

	return scheduler.LoadNextRegisters()
}
