package sched

import (
	"testing"

	"marmotos/kernel/task"
)

func TestSchedulerWithNoTasks(t *testing.T) {
	var s RoundRobinScheduler

	if _, switched := s.OnTimerTick(); switched {
		t.Fatal("expected no context switch with an empty run queue")
	}

	if _, ok := s.CurrentTask(); ok {
		t.Fatal("expected no current task with an empty run queue")
	}

	if _, ok := s.LoadNextRegisters(); ok {
		t.Fatal("expected no registers to load with an empty run queue")
	}

	// Saving registers with no tasks must be a no-op.
	s.SaveCurrentRegisters(task.NewRegisterState(0x1000, 0x8000))
}

func TestSchedulerWithSingleTask(t *testing.T) {
	var s RoundRobinScheduler

	id, err := s.AddTask(task.New(0x3000, 0xa000))
	if err != nil {
		t.Fatalf("unexpected error adding task: %v", err)
	}

	for tick := 0; tick < 4; tick++ {
		if _, switched := s.OnTimerTick(); switched {
			t.Fatalf("[tick %d] expected no context switch with a single task", tick)
		}
	}

	if current, _ := s.CurrentTask(); current.ID != id {
		t.Fatalf("expected the lone task to remain current; got id %d", current.ID)
	}
}

func TestSchedulerRoundRobinRotation(t *testing.T) {
	var s RoundRobinScheduler

	t1, err := s.AddTask(task.New(0x1000, 0x8000))
	if err != nil {
		t.Fatalf("unexpected error adding task: %v", err)
	}
	t2, err := s.AddTask(task.New(0x2000, 0x9000))
	if err != nil {
		t.Fatalf("unexpected error adding task: %v", err)
	}

	if current, _ := s.CurrentTask(); current.ID != t1 {
		t.Fatalf("expected the first added task to be current; got id %d", current.ID)
	}

	cs, switched := s.OnTimerTick()
	if !switched {
		t.Fatal("expected a context switch with two runnable tasks")
	}
	if cs.PreviousTask != t1 || cs.NextTask != t2 {
		t.Fatalf("expected switch {previous: %d, next: %d}; got %+v", t1, t2, cs)
	}

	if current, _ := s.CurrentTask(); current.ID != t2 {
		t.Fatalf("expected the second task to be current after the tick; got id %d", current.ID)
	}

	// With exactly two tasks consecutive ticks strictly alternate.
	expected := []ContextSwitch{
		{PreviousTask: t2, NextTask: t1},
		{PreviousTask: t1, NextTask: t2},
		{PreviousTask: t2, NextTask: t1},
	}
	for tickIndex, exp := range expected {
		cs, switched := s.OnTimerTick()
		if !switched {
			t.Fatalf("[tick %d] expected a context switch", tickIndex)
		}
		if cs != exp {
			t.Fatalf("[tick %d] expected switch %+v; got %+v", tickIndex, exp, cs)
		}
	}
}

func TestSchedulerVisitsAllTasks(t *testing.T) {
	var s RoundRobinScheduler

	ids := make([]uint64, 0, 4)
	for i := 0; i < 4; i++ {
		id, err := s.AddTask(task.New(uint64(0x1000*(i+1)), uint64(0x8000+i*0x1000)))
		if err != nil {
			t.Fatalf("unexpected error adding task %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	// A full rotation must visit every task in FIFO order and
	// consecutive ticks must never report the same next task twice.
	var prevNext uint64
	for tick := 0; tick < 8; tick++ {
		cs, switched := s.OnTimerTick()
		if !switched {
			t.Fatalf("[tick %d] expected a context switch", tick)
		}

		if exp := ids[(tick+1)%len(ids)]; cs.NextTask != exp {
			t.Fatalf("[tick %d] expected next task to be %d; got %d", tick, exp, cs.NextTask)
		}

		if tick > 0 && cs.NextTask == prevNext {
			t.Fatalf("[tick %d] expected consecutive ticks to visit distinct tasks", tick)
		}
		prevNext = cs.NextTask
	}
}

func TestSchedulerCapacity(t *testing.T) {
	var s RoundRobinScheduler

	for i := 0; i < MaxTasks; i++ {
		if _, err := s.AddTask(task.New(0x1000, 0x8000)); err != nil {
			t.Fatalf("unexpected error adding task %d: %v", i, err)
		}
	}

	if _, err := s.AddTask(task.New(0x1000, 0x8000)); err != errRunQueueFull {
		t.Fatalf("expected to get errRunQueueFull; got %v", err)
	}
}

func TestSchedulerSaveAndLoadRegisters(t *testing.T) {
	var s RoundRobinScheduler

	if _, err := s.AddTask(task.New(0x3000, 0xa000)); err != nil {
		t.Fatalf("unexpected error adding task: %v", err)
	}

	regs := task.NewRegisterState(0x3000, 0xa000)
	regs.RAX = 42
	regs.RSP = 0xbeef
	s.SaveCurrentRegisters(regs)

	loaded, ok := s.LoadNextRegisters()
	if !ok {
		t.Fatal("expected registers to be available")
	}

	if loaded.RAX != 42 {
		t.Fatalf("expected saved RAX to be 42; got %d", loaded.RAX)
	}
	if loaded.RSP != 0xbeef {
		t.Fatalf("expected saved RSP to be 0xbeef; got 0x%x", loaded.RSP)
	}

	if current, _ := s.CurrentTask(); current.StackPointer != 0xbeef {
		t.Fatalf("expected the cached stack pointer to track RSP; got 0x%x", current.StackPointer)
	}
}

func TestSchedulerSaveAppliesToCurrentTaskOnly(t *testing.T) {
	var s RoundRobinScheduler

	t1, _ := s.AddTask(task.New(0x1000, 0x8000))
	t2, _ := s.AddTask(task.New(0x2000, 0x9000))

	regs := task.NewRegisterState(0x1000, 0x8000)
	regs.RBX = 7
	s.SaveCurrentRegisters(regs)

	s.OnTimerTick()

	// The save above went to t1; t2 must still carry its initial state.
	loaded, _ := s.LoadNextRegisters()
	if loaded.RBX != 0 {
		t.Fatalf("expected task %d registers to be untouched; got RBX=%d", t2, loaded.RBX)
	}

	s.OnTimerTick()
	loaded, _ = s.LoadNextRegisters()
	if loaded.RBX != 7 {
		t.Fatalf("expected task %d to retain its saved registers; got RBX=%d", t1, loaded.RBX)
	}
}
