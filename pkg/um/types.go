package um

import (
	"fmt"
	"strings"

	"um/pkg/errors"
	"um/pkg/segment"
	"um/pkg/types"
)

type Status int

const (
	StatusRunning Status = iota
	StatusHalted
	StatusFaulted
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusHalted:
		return "halted"
	case StatusFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Registers is the register file. Indices come from 3-bit instruction
// fields, so they are always in range.
type Registers [types.NumRegisters]types.Word

func (r Registers) String() string {
	var b strings.Builder
	for i, v := range r {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "r%d=%08x", i, uint32(v))
	}
	return b.String()
}

// Stats counts what a run did.
type Stats struct {
	Steps        uint64
	Maps         uint64
	Unmaps       uint64
	ProgramLoads uint64
	PeakMapped   int
}

// Snapshot is a copy of the machine state for post-mortem inspection.
type Snapshot struct {
	Status    Status
	PC        types.Word
	Registers Registers
	Segments  []segment.Segment
	FreeIDs   []types.Word
	Fault     *errors.Fault
	Stats     Stats
}
