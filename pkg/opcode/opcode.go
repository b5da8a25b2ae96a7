// Package opcode defines the instruction set of the hvm stack machine.
// Every instruction is a single ASCII byte of the program text, and the
// byte offset of an instruction is its address for jumps and calls.
package opcode

import "fmt"

// Op is a single-byte instruction.
type Op byte

// Instruction set. The digits '0' through '9' are handled separately by
// IsDigit because they all share the same push-literal semantics.
const (
	// Print pops n and appends its decimal representation to the output.
	Print Op = 'p'

	// PrintChar pops n and appends the character with code point n.
	PrintChar Op = 'P'

	// Add, Sub, Mul and Div pop b then a and push a op b.
	Add Op = '+'
	Sub Op = '-'
	Mul Op = '*'
	Div Op = '/'

	// Compare pops b then a and pushes -1, 0 or 1.
	Compare Op = ':'

	// Jump pops an offset and moves the instruction pointer relative to
	// the Jump instruction itself.
	Jump Op = 'g'

	// Branch pops an offset then a condition and jumps like Jump when the
	// condition is zero.
	Branch Op = '?'

	// Call pops an absolute target and pushes the address of the next
	// instruction onto the call stack.
	Call Op = 'c'

	// Return pops the call stack and continues there.
	Return Op = '$'

	// Load pops an address and pushes the memory cell at that address.
	Load Op = '<'

	// Store pops an address then a value and writes the value to memory.
	Store Op = '>'

	// Copy pops a depth and pushes a copy of the element at that depth.
	Copy Op = '^'

	// Move pops a depth and moves the element at that depth to the top.
	Move Op = 'v'

	// Drop pops and discards the top of the stack.
	Drop Op = 'd'

	// Halt stops the machine.
	Halt Op = '!'
)

// Info describes an instruction for help output and diagnostics.
type Info struct {
	Op     Op
	Name   string
	Effect string
}

var table = []Info{
	{Print, "print", "( n -- ) append decimal n to output"},
	{PrintChar, "print-char", "( n -- ) append character n to output"},
	{Add, "add", "( a b -- a+b )"},
	{Sub, "sub", "( a b -- a-b )"},
	{Mul, "mul", "( a b -- a*b )"},
	{Div, "div", "( a b -- a/b )"},
	{Compare, "compare", "( a b -- -1|0|1 )"},
	{Jump, "jump", "( off -- ) ip += off"},
	{Branch, "branch", "( cond off -- ) ip += off if cond == 0"},
	{Call, "call", "( target -- ) push ip+1 to call stack, ip = target"},
	{Return, "return", "( -- ) ip = pop call stack"},
	{Load, "load", "( addr -- mem[addr] )"},
	{Store, "store", "( v addr -- ) mem[addr] = v"},
	{Copy, "copy", "( .. depth -- .. x ) copy element at depth"},
	{Move, "move", "( .. depth -- .. x ) move element at depth to top"},
	{Drop, "drop", "( x -- )"},
	{Halt, "halt", "( -- ) stop execution"},
}

var byOp = func() map[Op]Info {
	m := make(map[Op]Info, len(table))
	for _, info := range table {
		m[info.Op] = info
	}
	return m
}()

// All returns the instruction table in display order, digits excluded.
func All() []Info {
	out := make([]Info, len(table))
	copy(out, table)
	return out
}

// IsDigit reports whether b is one of the push-literal instructions.
func IsDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// DigitValue returns the literal pushed by a digit instruction.
func DigitValue(b byte) int32 {
	return int32(b - '0')
}

// Lookup returns the instruction encoded by b. Digits and bytes outside
// the instruction set report false.
func Lookup(b byte) (Op, bool) {
	_, ok := byOp[Op(b)]
	return Op(b), ok
}

// Valid reports whether b is any executable instruction, digits included.
func Valid(b byte) bool {
	if IsDigit(b) {
		return true
	}
	_, ok := Lookup(b)
	return ok
}

// Name returns the mnemonic of op, or "push" for digits.
func (op Op) Name() string {
	if IsDigit(byte(op)) {
		return "push"
	}
	if info, ok := byOp[op]; ok {
		return info.Name
	}
	return "illegal"
}

// String renders op as it appears in diagnostics.
func (op Op) String() string {
	return Display(byte(op))
}

// Display renders a program byte as a quoted character when it is
// printable ASCII and as a hex escape otherwise.
func Display(b byte) string {
	if b >= 0x20 && b < 0x7f {
		return fmt.Sprintf("'%c'", b)
	}
	return fmt.Sprintf("0x%02x", b)
}
