package vm

// OperandStack is the data stack. It is LIFO but also addressable by depth,
// where depth 0 is the top.
type OperandStack struct {
	values []Word
}

// NewOperandStack creates an empty operand stack.
func NewOperandStack() *OperandStack {
	return &OperandStack{values: make([]Word, 0, 64)}
}

// Len returns the number of values on the stack.
func (s *OperandStack) Len() int {
	return len(s.values)
}

// Push appends v on top of the stack.
func (s *OperandStack) Push(v Word) {
	s.values = append(s.values, v)
}

// Pop removes and returns the top of the stack.
func (s *OperandStack) Pop() (Word, error) {
	if err := s.need(1); err != nil {
		return 0, err
	}
	n := len(s.values) - 1
	v := s.values[n]
	s.values = s.values[:n]
	return v, nil
}

// Peek returns the value at depth without removing it.
func (s *OperandStack) Peek(depth Word) (Word, error) {
	i, err := s.index(depth)
	if err != nil {
		return 0, err
	}
	return s.values[i], nil
}

// RemoveAt removes and returns the value at depth. Values above it move
// down by one to close the gap.
func (s *OperandStack) RemoveAt(depth Word) (Word, error) {
	i, err := s.index(depth)
	if err != nil {
		return 0, err
	}
	v := s.values[i]
	s.values = append(s.values[:i], s.values[i+1:]...)
	return v, nil
}

// Values returns a copy of the stack, bottom first.
func (s *OperandStack) Values() []Word {
	out := make([]Word, len(s.values))
	copy(out, s.values)
	return out
}

// need fails unless at least n values are present.
func (s *OperandStack) need(n int) error {
	if len(s.values) < n {
		return NewStackUnderflowError(n, len(s.values))
	}
	return nil
}

func (s *OperandStack) index(depth Word) (int, error) {
	size := len(s.values)
	if depth < 0 || int(depth) >= size {
		return 0, NewDepthError(depth, size)
	}
	return size - 1 - int(depth), nil
}

// CallStack holds return addresses only.
type CallStack struct {
	frames []Word
}

// NewCallStack creates an empty call stack.
func NewCallStack() *CallStack {
	return &CallStack{frames: make([]Word, 0, 16)}
}

// Len returns the call depth.
func (c *CallStack) Len() int {
	return len(c.frames)
}

// Push records a return address.
func (c *CallStack) Push(addr Word) {
	c.frames = append(c.frames, addr)
}

// Pop removes and returns the most recent return address.
func (c *CallStack) Pop() (Word, error) {
	n := len(c.frames)
	if n == 0 {
		return 0, NewCallStackUnderflowError()
	}
	addr := c.frames[n-1]
	c.frames = c.frames[:n-1]
	return addr, nil
}

// Values returns a copy of the call stack, outermost first.
func (c *CallStack) Values() []Word {
	out := make([]Word, len(c.frames))
	copy(out, c.frames)
	return out
}
