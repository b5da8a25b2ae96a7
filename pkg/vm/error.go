// Package vm provides error handling for the hvm virtual machine.
package vm

import (
	"fmt"

	"github.com/zurustar/hvm/pkg/opcode"
)

// ErrorType represents the category of a fault.
type ErrorType string

// Every fault is fatal: the run stops and the output buffer is discarded.
const (
	ErrorStackUnderflow     ErrorType = "STACK_UNDERFLOW"
	ErrorCallStackUnderflow ErrorType = "CALL_STACK_UNDERFLOW"
	ErrorOutOfRange         ErrorType = "OUT_OF_RANGE"
	ErrorIllegalOpcode      ErrorType = "ILLEGAL_OPCODE"
	ErrorInvalidCodepoint   ErrorType = "INVALID_CODEPOINT"
	ErrorDivideByZero       ErrorType = "DIVIDE_BY_ZERO"
	ErrorLoad               ErrorType = "LOAD_ERROR"
)

// RuntimeError represents a fault raised by the machine or by loading its
// inputs.
type RuntimeError struct {
	Type    ErrorType
	Message string
	PC      int  // Program index of the faulting instruction, -1 if not known
	Opcode  byte // Faulting instruction when PC >= 0
	Err     error
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.PC >= 0 {
		msg += fmt.Sprintf(" at @%d %s", e.PC, opcode.Display(e.Opcode))
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Is matches any RuntimeError of the same type, so callers can write
// errors.Is(err, &RuntimeError{Type: ErrorDivideByZero}).
func (e *RuntimeError) Is(target error) bool {
	t, ok := target.(*RuntimeError)
	return ok && t.Type == e.Type
}

// NewRuntimeError creates a new RuntimeError without location.
func NewRuntimeError(errType ErrorType, message string) *RuntimeError {
	return &RuntimeError{
		Type:    errType,
		Message: message,
		PC:      -1,
	}
}

// locate attaches the faulting instruction to err if it has no location yet.
func locate(err error, pc Word, op byte) error {
	if rerr, ok := err.(*RuntimeError); ok && rerr.PC < 0 {
		rerr.PC = int(pc)
		rerr.Opcode = op
	}
	return err
}

// NewStackUnderflowError creates an operand stack underflow error.
func NewStackUnderflowError(need, have int) *RuntimeError {
	return NewRuntimeError(ErrorStackUnderflow, fmt.Sprintf("stack underflow: need %d values, have %d", need, have))
}

// NewDepthError creates an underflow error for a depth-indexed access.
func NewDepthError(depth Word, size int) *RuntimeError {
	return NewRuntimeError(ErrorStackUnderflow, fmt.Sprintf("stack underflow: depth %d out of range (size %d)", depth, size))
}

// NewCallStackUnderflowError creates a call stack underflow error.
func NewCallStackUnderflowError() *RuntimeError {
	return NewRuntimeError(ErrorCallStackUnderflow, "call stack underflow: return without call")
}

// NewOutOfRangeError creates a memory address error.
func NewOutOfRangeError(address Word) *RuntimeError {
	return NewRuntimeError(ErrorOutOfRange, fmt.Sprintf("address %d out of range [0, %d)", address, MemoryCapacity))
}

// NewIllegalOpcodeError creates an error for a byte outside the instruction set.
func NewIllegalOpcodeError(b byte) *RuntimeError {
	return NewRuntimeError(ErrorIllegalOpcode, fmt.Sprintf("illegal opcode %s", opcode.Display(b)))
}

// NewInvalidCodepointError creates an error for a value that is not a
// Unicode scalar value.
func NewInvalidCodepointError(n Word) *RuntimeError {
	return NewRuntimeError(ErrorInvalidCodepoint, fmt.Sprintf("invalid code point %d", n))
}

// NewDivideByZeroError creates a division by zero error.
func NewDivideByZeroError() *RuntimeError {
	return NewRuntimeError(ErrorDivideByZero, "division by zero")
}

// NewLoadError creates an error for an unreadable or malformed input file.
func NewLoadError(message string, err error) *RuntimeError {
	e := NewRuntimeError(ErrorLoad, message)
	e.Err = err
	return e
}
