package types

// Word is the machine's only value type. Arithmetic on words wraps modulo 2^32.
type Word uint32

// AllOnes is the value Input stores when the input stream is exhausted.
const AllOnes Word = ^Word(0)

// NumRegisters is the size of the register file.
const NumRegisters = 8

// RegisterIndex selects one of the eight general purpose registers.
type RegisterIndex uint8
