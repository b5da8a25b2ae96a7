// Package vm provides instruction execution for the hvm virtual machine.
package vm

import (
	"strconv"
	"unicode/utf8"

	"github.com/zurustar/hvm/pkg/opcode"
)

// execute runs a single instruction. It reports whether the instruction
// assigned the instruction pointer itself, in which case the caller must
// not advance it.
func (vm *VM) execute(b byte) (bool, error) {
	if !opcode.Valid(b) {
		return false, NewIllegalOpcodeError(b)
	}
	if opcode.IsDigit(b) {
		vm.stack.Push(Word(opcode.DigitValue(b)))
		return false, nil
	}

	switch opcode.Op(b) {
	case opcode.Print:
		return false, vm.executePrint()
	case opcode.PrintChar:
		return false, vm.executePrintChar()
	case opcode.Add, opcode.Sub, opcode.Mul, opcode.Div, opcode.Compare:
		return false, vm.executeBinaryOp(opcode.Op(b))
	case opcode.Jump:
		return vm.executeJump()
	case opcode.Branch:
		return vm.executeBranch()
	case opcode.Call:
		return vm.executeCall()
	case opcode.Return:
		return vm.executeReturn()
	case opcode.Load:
		return false, vm.executeLoad()
	case opcode.Store:
		return false, vm.executeStore()
	case opcode.Copy:
		return false, vm.executeCopy()
	case opcode.Move:
		return false, vm.executeMove()
	case opcode.Drop:
		_, err := vm.stack.Pop()
		return false, err
	case opcode.Halt:
		vm.halted = true
		return false, nil
	default:
		return false, NewIllegalOpcodeError(b)
	}
}

func (vm *VM) executePrint() error {
	n, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	vm.output.Append(strconv.FormatInt(int64(n), 10))
	return nil
}

func (vm *VM) executePrintChar() error {
	n, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	r := rune(n)
	if !utf8.ValidRune(r) {
		return NewInvalidCodepointError(n)
	}
	vm.output.Append(string(r))
	return nil
}

// executeBinaryOp pops b then a and pushes a op b. Both operands must be
// present before anything is popped.
func (vm *VM) executeBinaryOp(op opcode.Op) error {
	if err := vm.stack.need(2); err != nil {
		return err
	}
	b, _ := vm.stack.Pop()
	a, _ := vm.stack.Pop()

	result, err := binaryOp(op, a, b)
	if err != nil {
		return err
	}
	vm.stack.Push(result)
	return nil
}

// binaryOp applies op with wrapping two's-complement semantics. Division
// truncates toward zero and MinInt32 / -1 wraps to MinInt32.
func binaryOp(op opcode.Op, a, b Word) (Word, error) {
	switch op {
	case opcode.Add:
		return a + b, nil
	case opcode.Sub:
		return a - b, nil
	case opcode.Mul:
		return a * b, nil
	case opcode.Div:
		if b == 0 {
			return 0, NewDivideByZeroError()
		}
		return a / b, nil
	case opcode.Compare:
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		default:
			return 0, nil
		}
	default:
		return 0, NewIllegalOpcodeError(byte(op))
	}
}

// executeJump moves the instruction pointer relative to the jump itself.
func (vm *VM) executeJump() (bool, error) {
	offset, err := vm.stack.Pop()
	if err != nil {
		return false, err
	}
	vm.ip += offset
	return true, nil
}

// executeBranch jumps like executeJump when the condition is zero and
// falls through otherwise.
func (vm *VM) executeBranch() (bool, error) {
	offset, err := vm.stack.Pop()
	if err != nil {
		return false, err
	}
	cond, err := vm.stack.Pop()
	if err != nil {
		return false, err
	}
	if cond != 0 {
		return false, nil
	}
	vm.ip += offset
	return true, nil
}

// executeCall transfers to an absolute target and records the address of
// the following instruction.
func (vm *VM) executeCall() (bool, error) {
	target, err := vm.stack.Pop()
	if err != nil {
		return false, err
	}
	vm.calls.Push(vm.ip + 1)
	vm.ip = target
	return true, nil
}

func (vm *VM) executeReturn() (bool, error) {
	addr, err := vm.calls.Pop()
	if err != nil {
		return false, err
	}
	vm.ip = addr
	return true, nil
}

func (vm *VM) executeLoad() error {
	addr, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	v, err := vm.memory.Read(addr)
	if err != nil {
		return err
	}
	vm.stack.Push(v)
	return nil
}

// executeStore pops the address first, then the value.
func (vm *VM) executeStore() error {
	addr, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	v, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	return vm.memory.Write(addr, v)
}

func (vm *VM) executeCopy() error {
	depth, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	v, err := vm.stack.Peek(depth)
	if err != nil {
		return err
	}
	vm.stack.Push(v)
	return nil
}

func (vm *VM) executeMove() error {
	depth, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	v, err := vm.stack.RemoveAt(depth)
	if err != nil {
		return err
	}
	vm.stack.Push(v)
	return nil
}
