package kmain

import (
	"bytes"
	"testing"

	"marmotos/kernel/cpu"
	"marmotos/kernel/driver/pit"
	"marmotos/kernel/hal/bootinfo"
	"marmotos/kernel/kfmt"
	"marmotos/kernel/sched"
	"marmotos/kernel/task"
)

func buildBootInfo(t *testing.T) *bootinfo.BootInfo {
	t.Helper()

	b := bootinfo.NewBuilder().WithFramebuffer(bootinfo.FramebufferInfo{
		Base:          0xfd000000,
		Size:          1024 * 768 * 4,
		Width:         1024,
		Height:        768,
		Stride:        1024,
		BytesPerPixel: 4,
	})

	regions := []bootinfo.MemoryRegion{
		{Start: 0x0, End: 0x9f000, Kind: bootinfo.RegionUsable},
		{Start: 0xf0000, End: 0x100000, Kind: bootinfo.RegionReserved},
		{Start: 0x100000, End: 0x7fe0000, Kind: bootinfo.RegionUsable},
	}
	for _, r := range regions {
		if err := b.PushMemoryRegion(r); err != nil {
			t.Fatalf("unexpected error pushing region: %v", err)
		}
	}

	info, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	return info
}

func resetMocks() {
	panicFn = kfmt.Panic
	enableInterruptsFn = cpu.EnableInterrupts
	idleLoopFn = idleLoop
	scheduler = sched.RoundRobinScheduler{}
	kfmt.SetOutputSink(nil)
}

func TestKmainBringUp(t *testing.T) {
	defer resetMocks()

	var (
		buf               bytes.Buffer
		panicked          bool
		interruptsEnabled bool
		idleEntered       bool
	)
	kfmt.SetOutputSink(&buf)
	panicFn = func(e interface{}) { panicked = true }
	enableInterruptsFn = func() { interruptsEnabled = true }
	idleLoopFn = func() { idleEntered = true }

	Kmain(buildBootInfo(t))

	if panicked {
		t.Fatal("expected bring-up to complete without a kernel panic")
	}
	if !interruptsEnabled {
		t.Fatal("expected interrupts to be enabled after bring-up")
	}
	if !idleEntered {
		t.Fatal("expected Kmain to enter the idle loop")
	}

	if got := pit.UptimeTicks(); got != 0 {
		t.Fatalf("expected a freshly initialized tick counter; got %d", got)
	}

	if got := scheduler.TaskCount(); got != 2 {
		t.Fatalf("expected the initial task set to be seeded; got %d tasks", got)
	}
}

func TestKmainHaltsOnInvalidBootInfo(t *testing.T) {
	defer resetMocks()

	var (
		panicked    bool
		idleEntered bool
	)
	panicFn = func(e interface{}) { panicked = true }
	idleLoopFn = func() { idleEntered = true }

	var empty bootinfo.BootInfo
	Kmain(&empty)

	if !panicked {
		t.Fatal("expected an invalid boot record to panic the kernel")
	}
	if idleEntered {
		t.Fatal("expected bring-up to stop before the idle loop")
	}
}

func TestHandleTimerTickDrivesScheduler(t *testing.T) {
	defer resetMocks()

	panicFn = func(e interface{}) {}
	enableInterruptsFn = func() {}
	idleLoopFn = func() {}

	Kmain(buildBootInfo(t))

	first, ok := scheduler.CurrentTask()
	if !ok {
		t.Fatal("expected a current task after bring-up")
	}

	ticksBefore := pit.UptimeTicks()

	regs := first.Registers
	regs.RAX = 99
	next, switched := HandleTimerTick(regs)

	if got := pit.UptimeTicks(); got != ticksBefore+1 {
		t.Fatalf("expected the tick counter to advance; got %d", got)
	}

	if !switched {
		t.Fatal("expected a context switch with two seeded tasks")
	}

	if next.RIP == first.Registers.RIP {
		t.Fatal("expected the trampoline to receive the other task's registers")
	}

	// A second tick rotates back to the first task, whose snapshot must
	// carry the registers banked on the first tick.
	back, switched := HandleTimerTick(next)
	if !switched {
		t.Fatal("expected a context switch on the second tick")
	}
	if back.RAX != 99 {
		t.Fatalf("expected the saved snapshot to be restored; got RAX=%d", back.RAX)
	}
}

func TestHandleTimerTickWithoutRunnableTasks(t *testing.T) {
	defer resetMocks()

	scheduler = sched.RoundRobinScheduler{}

	if _, switched := HandleTimerTick(task.RegisterState{}); switched {
		t.Fatal("expected no context switch with an empty run queue")
	}
}
