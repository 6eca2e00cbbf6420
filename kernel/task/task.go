// Package task defines the software-saved execution context that the
// scheduler rotates between: a register snapshot plus the task bookkeeping
// that surrounds it.
package task

import (
	"sync/atomic"

	"marmotos/kernel/kfmt"
)

// defaultRFlags is the initial RFLAGS value for new tasks: interrupts
// enabled (IF) plus the always-set reserved bit 1.
const defaultRFlags = 0x202

// nextID is the monotonically increasing task id counter. Ids start at 1;
// uniqueness is guaranteed, ordering between concurrently created tasks is
// not.
var nextID uint64

// RegisterState contains a snapshot of the general purpose register values
// plus the instruction pointer and flags needed to resume a task.
type RegisterState struct {
	RAX uint64
	RBX uint64
	RCX uint64
	RDX uint64
	RSI uint64
	RDI uint64
	RBP uint64
	RSP uint64
	R8  uint64
	R9  uint64
	R10 uint64
	R11 uint64
	R12 uint64
	R13 uint64
	R14 uint64
	R15 uint64

	RIP    uint64
	RFlags uint64
}

// NewRegisterState returns a register snapshot suitable for a task's first
// activation: execution starts at entry with the stack pointer at stackTop
// and interrupts enabled.
func NewRegisterState(entry, stackTop uint64) RegisterState {
	return RegisterState{
		RIP:    entry,
		RSP:    stackTop,
		RFlags: defaultRFlags,
	}
}

// Print outputs a dump of the register values to the active output sink.
func (r *RegisterState) Print() {
	kfmt.Printf("RAX = %16x RBX = %16x\n", r.RAX, r.RBX)
	kfmt.Printf("RCX = %16x RDX = %16x\n", r.RCX, r.RDX)
	kfmt.Printf("RSI = %16x RDI = %16x\n", r.RSI, r.RDI)
	kfmt.Printf("RBP = %16x RSP = %16x\n", r.RBP, r.RSP)
	kfmt.Printf("R8  = %16x R9  = %16x\n", r.R8, r.R9)
	kfmt.Printf("R10 = %16x R11 = %16x\n", r.R10, r.R11)
	kfmt.Printf("R12 = %16x R13 = %16x\n", r.R12, r.R13)
	kfmt.Printf("R14 = %16x R15 = %16x\n", r.R14, r.R15)
	kfmt.Printf("RIP = %16x RFL = %16x\n", r.RIP, r.RFlags)
}

// Task describes a schedulable unit of execution.
type Task struct {
	// ID uniquely identifies the task for its entire life.
	ID uint64

	// StackPointer caches the task's stack top; it shadows
	// Registers.RSP and is refreshed on every register save.
	StackPointer uint64

	// Registers is the software-saved context restored when the task is
	// switched back in.
	Registers RegisterState
}

// New creates a task that will begin execution at entry with its stack at
// stackTop. Each task receives a process-globally unique id.
func New(entry, stackTop uint64) Task {
	return Task{
		ID:           atomic.AddUint64(&nextID, 1),
		StackPointer: stackTop,
		Registers:    NewRegisterState(entry, stackTop),
	}
}
