package um

import (
	"io"

	"um/pkg/errors"
	"um/pkg/types"
)

// instructionHandler executes one decoded instruction and returns the next
// program counter.
type instructionHandler func(m *Machine, in Instruction) (types.Word, error)

var dispatchTable = [numOpcodes]instructionHandler{
	CondMove:    handleCondMove,
	SegLoad:     handleSegLoad,
	SegStore:    handleSegStore,
	Add:         handleAdd,
	Mul:         handleMul,
	Div:         handleDiv,
	Nand:        handleNand,
	Halt:        handleHalt,
	Map:         handleMap,
	Unmap:       handleUnmap,
	Output:      handleOutput,
	Input:       handleInput,
	LoadProgram: handleLoadProgram,
	LoadValue:   handleLoadValue,
}

type flusher interface {
	Flush() error
}

func handleCondMove(m *Machine, in Instruction) (types.Word, error) {
	if m.Registers[in.C] != 0 {
		m.Registers[in.A] = m.Registers[in.B]
	}
	return m.PC + 1, nil
}

func handleSegLoad(m *Machine, in Instruction) (types.Word, error) {
	v, err := m.store.Read(m.Registers[in.B], m.Registers[in.C])
	if err != nil {
		return m.PC, err
	}
	m.Registers[in.A] = v
	return m.PC + 1, nil
}

func handleSegStore(m *Machine, in Instruction) (types.Word, error) {
	if err := m.store.Write(m.Registers[in.A], m.Registers[in.B], m.Registers[in.C]); err != nil {
		return m.PC, err
	}
	return m.PC + 1, nil
}

func handleAdd(m *Machine, in Instruction) (types.Word, error) {
	m.Registers[in.A] = m.Registers[in.B] + m.Registers[in.C]
	return m.PC + 1, nil
}

func handleMul(m *Machine, in Instruction) (types.Word, error) {
	m.Registers[in.A] = m.Registers[in.B] * m.Registers[in.C]
	return m.PC + 1, nil
}

func handleDiv(m *Machine, in Instruction) (types.Word, error) {
	divisor := m.Registers[in.C]
	if divisor == 0 {
		return m.PC, errors.Faultf(errors.FaultDivideByZero, "divisor r%d is zero", in.C)
	}
	m.Registers[in.A] = m.Registers[in.B] / divisor
	return m.PC + 1, nil
}

func handleNand(m *Machine, in Instruction) (types.Word, error) {
	m.Registers[in.A] = ^(m.Registers[in.B] & m.Registers[in.C])
	return m.PC + 1, nil
}

func handleHalt(m *Machine, in Instruction) (types.Word, error) {
	m.halt()
	return m.PC, nil
}

func handleMap(m *Machine, in Instruction) (types.Word, error) {
	id, err := m.store.Allocate(m.Registers[in.C])
	if err != nil {
		return m.PC, err
	}
	m.Registers[in.B] = id
	m.stats.Maps++
	return m.PC + 1, nil
}

func handleUnmap(m *Machine, in Instruction) (types.Word, error) {
	if err := m.store.Free(m.Registers[in.C]); err != nil {
		return m.PC, err
	}
	m.stats.Unmaps++
	return m.PC + 1, nil
}

func handleOutput(m *Machine, in Instruction) (types.Word, error) {
	v := m.Registers[in.C]
	if v > 0xFF {
		return m.PC, errors.Faultf(errors.FaultOutput, "r%d holds %d, which is not a byte", in.C, v)
	}
	if m.out != nil {
		if err := m.out.WriteByte(byte(v)); err != nil {
			return m.PC, errors.WrapFault(err, errors.FaultOutput, "cannot write byte")
		}
	}
	return m.PC + 1, nil
}

func handleInput(m *Machine, in Instruction) (types.Word, error) {
	// Pending output (a prompt, usually) must be visible before blocking.
	if f, ok := m.out.(flusher); ok {
		if err := f.Flush(); err != nil {
			return m.PC, errors.WrapFault(err, errors.FaultOutput, "cannot flush output before input")
		}
	}
	if m.in == nil {
		m.Registers[in.C] = types.AllOnes
		return m.PC + 1, nil
	}
	b, err := m.in.ReadByte()
	switch {
	case err == io.EOF:
		m.Registers[in.C] = types.AllOnes
	case err != nil:
		return m.PC, errors.WrapFault(err, errors.FaultInput, "cannot read byte")
	default:
		m.Registers[in.C] = types.Word(b)
	}
	return m.PC + 1, nil
}

// handleLoadProgram is the only handler that chooses the next program
// counter freely; it is not incremented afterwards.
func handleLoadProgram(m *Machine, in Instruction) (types.Word, error) {
	if err := m.store.DuplicateIntoZero(m.Registers[in.B]); err != nil {
		return m.PC, err
	}
	m.stats.ProgramLoads++
	return m.Registers[in.C], nil
}

func handleLoadValue(m *Machine, in Instruction) (types.Word, error) {
	m.Registers[in.A] = in.Value
	return m.PC + 1, nil
}
