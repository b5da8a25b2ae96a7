package vm

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	vm := New([]byte("1p!"))
	if vm.IP() != 0 || vm.Halted() || vm.Steps() != 0 {
		t.Errorf("fresh VM has unexpected state: ip=%d halted=%v steps=%d", vm.IP(), vm.Halted(), vm.Steps())
	}
	if vm.Stack().Len() != 0 || vm.CallStack().Len() != 0 || vm.Output().Len() != 0 {
		t.Error("fresh VM should start with empty stacks and output")
	}
	if len(vm.Memory().NonZero()) != 0 {
		t.Error("fresh VM memory should be zero")
	}
}

func TestVM_EmptyProgram(t *testing.T) {
	vm := New(nil)
	if !vm.Terminated() {
		t.Error("empty program should be terminated before the first step")
	}
	if err := vm.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vm.Steps() != 0 {
		t.Errorf("Steps = %d, want 0", vm.Steps())
	}
}

func TestVM_Step(t *testing.T) {
	vm := New([]byte("12+"))

	for i, wantMore := range []bool{true, true, false} {
		more, err := vm.Step()
		if err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
		if more != wantMore {
			t.Errorf("step %d: more = %v, want %v", i, more, wantMore)
		}
	}

	// 終了後のStepは何もしない
	more, err := vm.Step()
	if more || err != nil {
		t.Errorf("Step after termination = (%v, %v), want (false, nil)", more, err)
	}
	if vm.Steps() != 3 {
		t.Errorf("Steps = %d, want 3", vm.Steps())
	}
}

func TestVM_WithMemoryImage(t *testing.T) {
	vm := New([]byte("1<2<+p"), WithMemoryImage([]Word{5, 10, 20}))
	if err := vm.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := vm.Output().String(); got != "30" {
		t.Errorf("output = %q, want %q", got, "30")
	}

	oversized := make([]Word, MemoryCapacity+1)
	oversized[MemoryCapacity-1] = 1
	oversized[MemoryCapacity] = 2
	vm = New(nil, WithMemoryImage(oversized))
	if got := vm.Memory().NonZero(); len(got) != 1 || got[MemoryCapacity-1] != 1 {
		t.Errorf("oversized image should be truncated, got %v", got)
	}
}

func TestVM_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	vm := New([]byte("1z"), WithLogger(log), WithMemoryImage([]Word{1}))
	if err := vm.Run(); err == nil {
		t.Fatal("expected error, got nil")
	}

	out := buf.String()
	for _, s := range []string{"Memory image applied", "VM started", "VM faulted"} {
		if !strings.Contains(out, s) {
			t.Errorf("log output should contain %q, got %q", s, out)
		}
	}
}

func TestVM_State(t *testing.T) {
	vm := New([]byte("95>77c!$"))
	if err := vm.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state := vm.State()
	if state.IP != 7 || !state.Halted || state.Steps != 8 {
		t.Errorf("unexpected position: %+v", state)
	}
	if !equalWords(state.Stack, []Word{7}) {
		t.Errorf("Stack = %v, want [7]", state.Stack)
	}
	if len(state.CallStack) != 0 {
		t.Errorf("CallStack = %v, want empty", state.CallStack)
	}
	if len(state.Memory) != 1 || state.Memory[5] != 9 {
		t.Errorf("Memory = %v, want map[5:9]", state.Memory)
	}

	// Stateはコピーであり、変更してもVMに影響しない
	state.Stack[0] = 100
	if v, _ := vm.Stack().Peek(0); v != 7 {
		t.Errorf("modifying State changed the VM stack: %d", v)
	}
}

func TestVM_FaultKeepsOutputUnflushed(t *testing.T) {
	vm := New([]byte("1p$"))
	err := vm.Run()
	if !errors.Is(err, &RuntimeError{Type: ErrorCallStackUnderflow}) {
		t.Fatalf("expected CALL_STACK_UNDERFLOW, got %v", err)
	}
	// バッファには残っているが書き出すかどうかは呼び出し側が決める
	if vm.Output().String() != "1" {
		t.Errorf("output buffer = %q, want %q", vm.Output().String(), "1")
	}
}

func TestOutputBuffer_Flush(t *testing.T) {
	b := NewOutputBuffer()
	var buf bytes.Buffer
	if err := b.Flush(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "\n" {
		t.Errorf("empty flush = %q, want newline only", buf.String())
	}

	b.Append("12")
	b.Append("H")
	buf.Reset()
	if err := b.Flush(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "12H\n" {
		t.Errorf("flush = %q, want %q", buf.String(), "12H\n")
	}
}

func TestWriterTracer(t *testing.T) {
	tests := []struct {
		name    string
		program string
		want    string
	}{
		{
			name:    "successful steps",
			program: "12+p!",
			want:    "@0 1 [1]\n@1 2 [1, 2]\n@2 + [3]\n@3 p []\n@4 ! []\n",
		},
		{
			name:    "faulting step",
			program: "1z",
			want:    "@0 1 [1]\n@1 z \n",
		},
		{
			name:    "non-printable opcode",
			program: "\x01",
			want:    "@0 0x01 \n",
		},
		{
			name:    "negative values",
			program: "01-",
			want:    "@0 0 [0]\n@1 1 [0, 1]\n@2 - [-1]\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			vm := New([]byte(tt.program), WithTracer(NewWriterTracer(&buf)))
			_ = vm.Run()
			if buf.String() != tt.want {
				t.Errorf("trace = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestFormatStack(t *testing.T) {
	tests := []struct {
		stack []Word
		want  string
	}{
		{nil, "[]"},
		{[]Word{5}, "[5]"},
		{[]Word{1, -2, 3}, "[1, -2, 3]"},
	}
	for _, tt := range tests {
		if got := FormatStack(tt.stack); got != tt.want {
			t.Errorf("FormatStack(%v) = %q, want %q", tt.stack, got, tt.want)
		}
	}
}
