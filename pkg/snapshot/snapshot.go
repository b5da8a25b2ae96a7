// Package snapshot serializes the final machine state to CBOR.
package snapshot

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/zurustar/hvm/pkg/vm"
)

// encMode uses canonical mode so equal states encode to equal bytes.
var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Snapshot is the serialized form of vm.State.
type Snapshot struct {
	IP        vm.Word             `cbor:"ip"`
	Halted    bool                `cbor:"halted"`
	Steps     uint64              `cbor:"steps"`
	Stack     []vm.Word           `cbor:"stack"`
	CallStack []vm.Word           `cbor:"call_stack"`
	Memory    map[vm.Word]vm.Word `cbor:"memory"`
	Output    string              `cbor:"output"`
}

// FromState copies a machine state into a Snapshot.
func FromState(s vm.State) *Snapshot {
	return &Snapshot{
		IP:        s.IP,
		Halted:    s.Halted,
		Steps:     s.Steps,
		Stack:     s.Stack,
		CallStack: s.CallStack,
		Memory:    s.Memory,
		Output:    s.Output,
	}
}

// Encode serializes a Snapshot to CBOR bytes.
func Encode(s *Snapshot) ([]byte, error) {
	return encMode.Marshal(s)
}

// Decode deserializes a Snapshot from CBOR bytes.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	return &s, nil
}

// WriteFile encodes s and writes it to path.
func WriteFile(path string, s *Snapshot) error {
	data, err := Encode(s)
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("snapshot: write %s: %w", path, err)
	}
	return nil
}

// ReadFile reads and decodes the snapshot at path.
func ReadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", path, err)
	}
	return Decode(data)
}
