package um

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"um/pkg/errors"
	"um/pkg/types"
)

func TestThreeRegisterRoundTrip(t *testing.T) {
	for op := CondMove; op <= LoadProgram; op++ {
		for a := types.RegisterIndex(0); a < types.NumRegisters; a++ {
			for b := types.RegisterIndex(0); b < types.NumRegisters; b++ {
				for c := types.RegisterIndex(0); c < types.NumRegisters; c++ {
					want := Instruction{Op: op, A: a, B: b, C: c}
					got, err := Decode(ThreeRegister(op, a, b, c))
					if err != nil {
						t.Fatalf("Decode(%v) error: %v", want, err)
					}
					if got != want {
						t.Fatalf("Decode(ThreeRegister(%v)) = %+v, want %+v", want, got, want)
					}
				}
			}
		}
	}
}

func TestLoadValueRoundTrip(t *testing.T) {
	for a := types.RegisterIndex(0); a < types.NumRegisters; a++ {
		for _, v := range []types.Word{0, 1, 72, 0x123456, MaxImmediate} {
			want := Instruction{Op: LoadValue, A: a, Value: v}
			got, err := Decode(LoadImmediate(a, v))
			if err != nil {
				t.Fatalf("Decode(%v) error: %v", want, err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("LoadValue round trip mismatch (-want +got):\n%s", diff)
			}
		}
	}
}

func TestKnownEncodings(t *testing.T) {
	tests := []struct {
		name string
		got  types.Word
		want types.Word
	}{
		{"add r1, r2, r3", ThreeRegister(Add, 1, 2, 3), 0x30000053},
		{"halt", ThreeRegister(Halt, 0, 0, 0), 0x70000000},
		{"lv r1, 72", LoadImmediate(1, 72), 0xD2000048},
		{"lv r7, max", LoadImmediate(7, MaxImmediate), 0xDFFFFFFF},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s encodes to %#08x, want %#08x", tt.name, uint32(tt.got), uint32(tt.want))
		}
	}
}

func TestDecodeIgnoresUnusedBits(t *testing.T) {
	got, err := Decode(0x3FFFFE53)
	if err != nil {
		t.Fatal(err)
	}
	want := Instruction{Op: Add, A: 1, B: 2, C: 3}
	if got != want {
		t.Errorf("Decode(0x3FFFFE53) = %+v, want %+v", got, want)
	}
}

func TestDecodeRejectsUndefinedOpcodes(t *testing.T) {
	for _, word := range []types.Word{0xE0000000, 0xEFFFFFFF, 0xF0000000, 0xF1234567} {
		_, err := Decode(word)
		f, ok := errors.AsFault(err)
		if !ok || f.Kind != errors.FaultDecode {
			t.Errorf("Decode(%#08x) err = %v, want a decode fault", uint32(word), err)
		}
	}
}

func TestEncodeRejects(t *testing.T) {
	tests := []struct {
		name string
		in   Instruction
	}{
		{"register out of range", Instruction{Op: Add, A: 8}},
		{"immediate too wide", Instruction{Op: LoadValue, Value: MaxImmediate + 1}},
		{"undefined opcode", Instruction{Op: 14}},
		{"immediate register out of range", Instruction{Op: LoadValue, A: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.in.Encode(); err == nil {
				t.Errorf("Encode(%+v) succeeded, want an error", tt.in)
			}
		})
	}
}

func TestInstructionString(t *testing.T) {
	tests := []struct {
		word types.Word
		want string
	}{
		{ThreeRegister(CondMove, 1, 2, 3), "cmov r1, r2, r3"},
		{ThreeRegister(SegLoad, 4, 5, 6), "sload r4, r5, r6"},
		{ThreeRegister(Halt, 1, 2, 3), "halt"},
		{ThreeRegister(Map, 0, 2, 1), "map r2, r1"},
		{ThreeRegister(Unmap, 0, 0, 2), "unmap r2"},
		{ThreeRegister(Output, 0, 0, 7), "out r7"},
		{ThreeRegister(Input, 0, 0, 4), "in r4"},
		{ThreeRegister(LoadProgram, 0, 3, 5), "loadp r3, r5"},
		{LoadImmediate(2, 105), "lv r2, 105"},
		{0xE0000001, ".word 0xe0000001"},
	}
	for _, tt := range tests {
		if got := Disassemble(tt.word); got != tt.want {
			t.Errorf("Disassemble(%#08x) = %q, want %q", uint32(tt.word), got, tt.want)
		}
	}
}

func TestOpcodeString(t *testing.T) {
	if got := Opcode(15).String(); got != "op15" {
		t.Errorf("Opcode(15).String() = %q", got)
	}
	if got := LoadProgram.String(); got != "loadp" {
		t.Errorf("LoadProgram.String() = %q", got)
	}
}
