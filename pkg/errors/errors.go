package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// FaultKind classifies a fatal machine error.
type FaultKind int

const (
	FaultInternal FaultKind = iota
	FaultDecode
	FaultProgramCounter
	FaultSegment
	FaultBounds
	FaultDivideByZero
	FaultUnmap
	FaultOutput
	FaultInput
	FaultResource
)

var faultKindNames = [...]string{
	FaultInternal:       "internal",
	FaultDecode:         "decode",
	FaultProgramCounter: "program counter",
	FaultSegment:        "segment",
	FaultBounds:         "bounds",
	FaultDivideByZero:   "divide by zero",
	FaultUnmap:          "unmap",
	FaultOutput:         "output",
	FaultInput:          "input",
	FaultResource:       "resource",
}

func (k FaultKind) String() string {
	if k < 0 || int(k) >= len(faultKindNames) {
		return fmt.Sprintf("FaultKind(%d)", int(k))
	}
	return faultKindNames[k]
}

// Fault is a fatal runtime error. Faults raised by the segment store carry no
// location; the machine attaches the program counter and the disassembled
// instruction with At before surfacing them.
type Fault struct {
	Kind        FaultKind
	Message     string
	Cause       error
	PC          uint32
	Instruction string

	located bool
}

func (e *Fault) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(" fault: ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	if e.located {
		fmt.Fprintf(&b, " (pc %d", e.PC)
		if e.Instruction != "" {
			fmt.Fprintf(&b, ": %s", e.Instruction)
		}
		b.WriteString(")")
	}
	return b.String()
}

func (e *Fault) Unwrap() error {
	return e.Cause
}

// At records where the fault happened. It is a no-op on an already located
// fault so the innermost location wins.
func (e *Fault) At(pc uint32, instruction string) *Fault {
	if e.located {
		return e
	}
	e.PC = pc
	e.Instruction = instruction
	e.located = true
	return e
}

// Located reports whether At has been called.
func (e *Fault) Located() bool {
	return e.located
}

// IsFault checks if an error is, or wraps, a machine fault
func IsFault(err error) bool {
	_, ok := AsFault(err)
	return ok
}

// AsFault returns the machine fault in err's chain, if any.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if stderrors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// WrapFault wraps an existing error as a fault of the given kind
func WrapFault(err error, kind FaultKind, message string) *Fault {
	return &Fault{
		Kind:    kind,
		Message: message,
		Cause:   err,
	}
}

// Faultf creates a new fault with formatted message
func Faultf(kind FaultKind, format string, args ...interface{}) *Fault {
	return &Fault{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}
