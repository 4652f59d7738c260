package um

import "fmt"

type Opcode uint8

const (
	CondMove    Opcode = 0x0
	SegLoad     Opcode = 0x1
	SegStore    Opcode = 0x2
	Add         Opcode = 0x3
	Mul         Opcode = 0x4
	Div         Opcode = 0x5
	Nand        Opcode = 0x6
	Halt        Opcode = 0x7
	Map         Opcode = 0x8
	Unmap       Opcode = 0x9
	Output      Opcode = 0xA
	Input       Opcode = 0xB
	LoadProgram Opcode = 0xC
	LoadValue   Opcode = 0xD

	numOpcodes = 14
)

var opcodeNames = [numOpcodes]string{
	CondMove:    "cmov",
	SegLoad:     "sload",
	SegStore:    "sstore",
	Add:         "add",
	Mul:         "mul",
	Div:         "div",
	Nand:        "nand",
	Halt:        "halt",
	Map:         "map",
	Unmap:       "unmap",
	Output:      "out",
	Input:       "in",
	LoadProgram: "loadp",
	LoadValue:   "lv",
}

// Valid reports whether op is one of the fourteen defined opcodes.
func (op Opcode) Valid() bool {
	return op < numOpcodes
}

func (op Opcode) String() string {
	if !op.Valid() {
		return fmt.Sprintf("op%d", uint8(op))
	}
	return opcodeNames[op]
}

// operands lists which of A, B, C a three-register opcode reads or writes.
type operands struct {
	a, b, c bool
}

var opcodeOperands = [numOpcodes]operands{
	CondMove:    {true, true, true},
	SegLoad:     {true, true, true},
	SegStore:    {true, true, true},
	Add:         {true, true, true},
	Mul:         {true, true, true},
	Div:         {true, true, true},
	Nand:        {true, true, true},
	Halt:        {},
	Map:         {false, true, true},
	Unmap:       {false, false, true},
	Output:      {false, false, true},
	Input:       {false, false, true},
	LoadProgram: {false, true, true},
	LoadValue:   {a: true},
}
