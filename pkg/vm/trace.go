package vm

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Tracer observes instruction execution. It must not change machine state.
type Tracer interface {
	// BeginStep is called before the instruction at ip executes.
	BeginStep(ip Word, op byte)
	// EndStep is called after a successful step with the operand stack,
	// bottom first.
	EndStep(stack []Word)
	// AbortStep is called instead of EndStep when the instruction faults.
	AbortStep(err error)
}

// WriterTracer writes one line per instruction in the form
// "@<ip> <op> [stack]".
type WriterTracer struct {
	w io.Writer
}

// NewWriterTracer creates a tracer writing to w.
func NewWriterTracer(w io.Writer) *WriterTracer {
	return &WriterTracer{w: w}
}

func (t *WriterTracer) BeginStep(ip Word, op byte) {
	if op >= 0x20 && op < 0x7f {
		fmt.Fprintf(t.w, "@%d %c ", ip, op)
		return
	}
	fmt.Fprintf(t.w, "@%d 0x%02x ", ip, op)
}

func (t *WriterTracer) EndStep(stack []Word) {
	fmt.Fprintln(t.w, FormatStack(stack))
}

func (t *WriterTracer) AbortStep(_ error) {
	fmt.Fprintln(t.w)
}

// FormatStack renders stack values as "[a, b, c]", bottom first.
func FormatStack(stack []Word) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range stack {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	}
	sb.WriteByte(']')
	return sb.String()
}
