// Package vm provides the hvm stack machine.
// It implements:
// - Fixed-size linear memory of 32-bit words
// - An operand stack addressable by depth
// - A call stack of return addresses
// - An instruction-pointer driven dispatch loop over single-byte opcodes
// - An output buffer flushed on clean termination
package vm

import (
	"log/slog"

	"github.com/zurustar/hvm/pkg/logger"
	"github.com/zurustar/hvm/pkg/opcode"
)

// VM is a single execution context. It owns its memory, both stacks and the
// output buffer for the whole run and is not safe for concurrent use.
type VM struct {
	program []byte
	ip      Word
	halted  bool
	steps   uint64

	memory *Memory
	stack  *OperandStack
	calls  *CallStack
	output *OutputBuffer

	image  []Word
	tracer Tracer
	log    *slog.Logger
}

// State is a copy of the observable machine state.
type State struct {
	IP        Word
	Halted    bool
	Steps     uint64
	Stack     []Word
	CallStack []Word
	Memory    map[Word]Word // non-zero cells only
	Output    string
}

// Option is a functional option for configuring the VM.
type Option func(*VM)

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(vm *VM) {
		vm.log = log
	}
}

// WithTracer enables per-instruction tracing.
func WithTracer(t Tracer) Option {
	return func(vm *VM) {
		vm.tracer = t
	}
}

// WithMemoryImage preloads memory from address 0 before execution.
func WithMemoryImage(values []Word) Option {
	return func(vm *VM) {
		vm.image = values
	}
}

// New creates a VM for program. The program is not copied and must not be
// modified while the VM runs.
func New(program []byte, opts ...Option) *VM {
	vm := &VM{
		program: program,
		memory:  NewMemory(),
		stack:   NewOperandStack(),
		calls:   NewCallStack(),
		output:  NewOutputBuffer(),
		log:     logger.GetLogger(),
	}

	for _, opt := range opts {
		opt(vm)
	}

	if vm.image != nil {
		n := vm.memory.BulkLoad(vm.image)
		vm.log.Debug("Memory image applied", "cells", n, "ignored", len(vm.image)-n)
		vm.image = nil
	}

	return vm
}

// Run executes instructions until the machine halts, the instruction
// pointer leaves the program, or an instruction faults. A fault is returned
// as a *RuntimeError and leaves the output buffer unflushed.
func (vm *VM) Run() error {
	vm.log.Info("VM started", "program_size", len(vm.program))

	for {
		more, err := vm.Step()
		if err != nil {
			vm.log.Debug("VM faulted", "ip", vm.ip, "steps", vm.steps, "error", err)
			return err
		}
		if !more {
			break
		}
	}

	vm.log.Info("VM stopped", "ip", vm.ip, "halted", vm.halted, "steps", vm.steps)
	return nil
}

// Step executes the instruction at the instruction pointer. It returns
// false once the machine has terminated.
func (vm *VM) Step() (bool, error) {
	if vm.Terminated() {
		return false, nil
	}

	ip := vm.ip
	op := vm.program[ip]
	if vm.tracer != nil {
		vm.tracer.BeginStep(ip, op)
	}

	jumped, err := vm.execute(op)
	if err != nil {
		if vm.tracer != nil {
			vm.tracer.AbortStep(err)
		}
		vm.log.Debug("Instruction faulted", "ip", ip, "op", opcode.Op(op).Name())
		return false, locate(err, ip, op)
	}

	vm.steps++
	if vm.tracer != nil {
		vm.tracer.EndStep(vm.stack.Values())
	}
	if !jumped {
		vm.ip++
	}

	return !vm.Terminated(), nil
}

// Terminated reports whether the machine has halted or the instruction
// pointer is outside the program.
func (vm *VM) Terminated() bool {
	return vm.halted || vm.ip < 0 || int(vm.ip) >= len(vm.program)
}

// IP returns the instruction pointer.
func (vm *VM) IP() Word {
	return vm.ip
}

// Halted reports whether a halt instruction was executed.
func (vm *VM) Halted() bool {
	return vm.halted
}

// Steps returns the number of instructions executed successfully.
func (vm *VM) Steps() uint64 {
	return vm.steps
}

// Memory returns the linear memory.
func (vm *VM) Memory() *Memory {
	return vm.memory
}

// Stack returns the operand stack.
func (vm *VM) Stack() *OperandStack {
	return vm.stack
}

// CallStack returns the call stack.
func (vm *VM) CallStack() *CallStack {
	return vm.calls
}

// Output returns the output buffer.
func (vm *VM) Output() *OutputBuffer {
	return vm.output
}

// State returns a copy of the machine state.
func (vm *VM) State() State {
	return State{
		IP:        vm.ip,
		Halted:    vm.halted,
		Steps:     vm.steps,
		Stack:     vm.stack.Values(),
		CallStack: vm.calls.Values(),
		Memory:    vm.memory.NonZero(),
		Output:    vm.output.String(),
	}
}
