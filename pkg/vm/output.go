package vm

import (
	"io"
	"strings"
)

// OutputBuffer collects the text produced by print instructions. It is
// written out once when the machine terminates cleanly.
type OutputBuffer struct {
	fragments []string
}

// NewOutputBuffer creates an empty buffer.
func NewOutputBuffer() *OutputBuffer {
	return &OutputBuffer{}
}

// Append adds one fragment.
func (b *OutputBuffer) Append(s string) {
	b.fragments = append(b.fragments, s)
}

// Len returns the number of fragments.
func (b *OutputBuffer) Len() int {
	return len(b.fragments)
}

// String returns the concatenated output.
func (b *OutputBuffer) String() string {
	return strings.Join(b.fragments, "")
}

// Flush writes the concatenated output followed by a single newline.
func (b *OutputBuffer) Flush(w io.Writer) error {
	_, err := io.WriteString(w, b.String()+"\n")
	return err
}
