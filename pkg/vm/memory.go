package vm

// Word is the machine word. Arithmetic on words wraps on overflow.
type Word int32

// MemoryCapacity is the number of cells in linear memory.
const MemoryCapacity = 16384

// Memory is the fixed-size linear memory of the machine.
// It is zero-initialized and never resized.
type Memory struct {
	cells [MemoryCapacity]Word
}

// NewMemory creates a zeroed memory.
func NewMemory() *Memory {
	return &Memory{}
}

// Read returns the cell at address.
func (m *Memory) Read(address Word) (Word, error) {
	if !inRange(address) {
		return 0, NewOutOfRangeError(address)
	}
	return m.cells[address], nil
}

// Write stores value at address.
func (m *Memory) Write(address, value Word) error {
	if !inRange(address) {
		return NewOutOfRangeError(address)
	}
	m.cells[address] = value
	return nil
}

// BulkLoad copies values into the cells starting at address 0 and returns
// the number of cells written. Values beyond the capacity are ignored and
// cells past len(values) keep their contents.
func (m *Memory) BulkLoad(values []Word) int {
	return copy(m.cells[:], values)
}

// NonZero returns every cell holding a non-zero value, keyed by address.
func (m *Memory) NonZero() map[Word]Word {
	out := make(map[Word]Word)
	for addr, v := range m.cells {
		if v != 0 {
			out[Word(addr)] = v
		}
	}
	return out
}

func inRange(address Word) bool {
	return address >= 0 && address < MemoryCapacity
}
