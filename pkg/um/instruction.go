package um

import (
	"fmt"
	"strings"

	"um/pkg/bitpack"
	"um/pkg/errors"
	"um/pkg/types"
)

// Instruction word layout.
const (
	opWidth  = 4
	opLSB    = 28
	regWidth = 3
	aLSB     = 6
	bLSB     = 3
	cLSB     = 0

	valueRegLSB = 25
	valueWidth  = 25

	// MaxImmediate is the largest value LoadValue can carry.
	MaxImmediate types.Word = 1<<valueWidth - 1
)

// Instruction is a decoded instruction word. For LoadValue only A and Value
// are meaningful; for every other opcode Value is zero.
type Instruction struct {
	Op      Opcode
	A, B, C types.RegisterIndex
	Value   types.Word
}

// Decode splits an instruction word into its opcode and operand fields.
// Opcodes 14 and 15 are rejected with a decode fault.
func Decode(word types.Word) (Instruction, error) {
	w := uint32(word)
	op := Opcode(bitpack.GetU(w, opWidth, opLSB))
	switch {
	case op == LoadValue:
		return Instruction{
			Op:    op,
			A:     types.RegisterIndex(bitpack.GetU(w, regWidth, valueRegLSB)),
			Value: types.Word(bitpack.GetU(w, valueWidth, 0)),
		}, nil
	case op.Valid():
		return Instruction{
			Op: op,
			A:  types.RegisterIndex(bitpack.GetU(w, regWidth, aLSB)),
			B:  types.RegisterIndex(bitpack.GetU(w, regWidth, bLSB)),
			C:  types.RegisterIndex(bitpack.GetU(w, regWidth, cLSB)),
		}, nil
	default:
		return Instruction{}, errors.Faultf(errors.FaultDecode, "invalid opcode %d in word 0x%08x", uint8(op), w)
	}
}

// Encode packs the instruction back into a word. Register indices above 7,
// an immediate wider than 25 bits or an undefined opcode are rejected.
func (in Instruction) Encode() (types.Word, error) {
	if !in.Op.Valid() {
		return 0, fmt.Errorf("encode: invalid opcode %d", uint8(in.Op))
	}
	w, err := bitpack.NewU(0, opWidth, opLSB, uint32(in.Op))
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", in.Op, err)
	}
	if in.Op == LoadValue {
		if w, err = bitpack.NewU(w, regWidth, valueRegLSB, uint32(in.A)); err != nil {
			return 0, fmt.Errorf("encode %s register a: %w", in.Op, err)
		}
		if w, err = bitpack.NewU(w, valueWidth, 0, uint32(in.Value)); err != nil {
			return 0, fmt.Errorf("encode %s value: %w", in.Op, err)
		}
		return types.Word(w), nil
	}
	fields := []struct {
		name string
		lsb  uint
		reg  types.RegisterIndex
	}{{"a", aLSB, in.A}, {"b", bLSB, in.B}, {"c", cLSB, in.C}}
	for _, f := range fields {
		if w, err = bitpack.NewU(w, regWidth, f.lsb, uint32(f.reg)); err != nil {
			return 0, fmt.Errorf("encode %s register %s: %w", in.Op, f.name, err)
		}
	}
	return types.Word(w), nil
}

// ThreeRegister builds a three-register instruction word. It panics on
// out-of-range operands, so it is meant for assembling fixed programs.
func ThreeRegister(op Opcode, a, b, c types.RegisterIndex) types.Word {
	if op == LoadValue {
		panic("um: LoadValue has no three-register form")
	}
	w, err := Instruction{Op: op, A: a, B: b, C: c}.Encode()
	if err != nil {
		panic(err)
	}
	return w
}

// LoadImmediate builds a LoadValue instruction word. It panics if value does
// not fit in 25 bits.
func LoadImmediate(a types.RegisterIndex, value types.Word) types.Word {
	w, err := Instruction{Op: LoadValue, A: a, Value: value}.Encode()
	if err != nil {
		panic(err)
	}
	return w
}

func (in Instruction) String() string {
	if in.Op == LoadValue {
		return fmt.Sprintf("%s r%d, %d", in.Op, in.A, in.Value)
	}
	if !in.Op.Valid() {
		return in.Op.String()
	}
	used := opcodeOperands[in.Op]
	regs := make([]string, 0, 3)
	if used.a {
		regs = append(regs, fmt.Sprintf("r%d", in.A))
	}
	if used.b {
		regs = append(regs, fmt.Sprintf("r%d", in.B))
	}
	if used.c {
		regs = append(regs, fmt.Sprintf("r%d", in.C))
	}
	if len(regs) == 0 {
		return in.Op.String()
	}
	return in.Op.String() + " " + strings.Join(regs, ", ")
}

// Disassemble renders a single word, falling back to a data directive for
// words that do not decode.
func Disassemble(word types.Word) string {
	in, err := Decode(word)
	if err != nil {
		return fmt.Sprintf(".word 0x%08x", uint32(word))
	}
	return in.String()
}
