// Package console adapts process streams to the byte-at-a-time I/O of the
// machine.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// FlushPolicy decides when buffered output reaches the underlying writer.
type FlushPolicy int

const (
	// FlushAuto flushes every byte when the output is a terminal, and behaves
	// like FlushExit otherwise.
	FlushAuto FlushPolicy = iota
	// FlushByte flushes after every byte.
	FlushByte
	// FlushExit flushes only before input and when the console is flushed
	// explicitly.
	FlushExit
)

var policyNames = [...]string{"auto", "byte", "exit"}

func (p FlushPolicy) String() string {
	if p < 0 || int(p) >= len(policyNames) {
		return fmt.Sprintf("FlushPolicy(%d)", int(p))
	}
	return policyNames[p]
}

// ParseFlushPolicy parses auto, byte or exit. The empty string means auto.
func ParseFlushPolicy(s string) (FlushPolicy, error) {
	if s == "" {
		return FlushAuto, nil
	}
	for i, name := range policyNames {
		if s == name {
			return FlushPolicy(i), nil
		}
	}
	return 0, fmt.Errorf("unknown flush policy %q", s)
}

// Console is a buffered reader/writer pair. Its Flush method makes the
// machine push pending output before every read.
type Console struct {
	r         *bufio.Reader
	w         *bufio.Writer
	eagerSync bool
	written   uint64
	read      uint64
}

// New wraps in and out. With FlushAuto, out is checked for a terminal.
func New(in io.Reader, out io.Writer, policy FlushPolicy) *Console {
	eager := policy == FlushByte
	if policy == FlushAuto {
		eager = IsTerminal(out)
	}
	return &Console{
		r:         bufio.NewReader(in),
		w:         bufio.NewWriter(out),
		eagerSync: eager,
	}
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (c *Console) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.read++
	}
	return b, err
}

func (c *Console) WriteByte(b byte) error {
	if err := c.w.WriteByte(b); err != nil {
		return err
	}
	c.written++
	if c.eagerSync {
		return c.w.Flush()
	}
	return nil
}

func (c *Console) Flush() error {
	return c.w.Flush()
}

// Counts returns the number of bytes read and written so far.
func (c *Console) Counts() (read, written uint64) {
	return c.read, c.written
}
