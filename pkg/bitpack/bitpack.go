// Package bitpack reads and writes unsigned bit fields inside a 32-bit word.
//
// A field of width w at lsb l occupies bits [l, l+w-1], bit 0 being the least
// significant. Every function panics when w+l exceeds 32: field layouts are
// fixed by the caller, so a bad layout is a programming error rather than a
// data error.
package bitpack

import (
	"errors"
	"fmt"
)

const WordBits = 32

// ErrOverflow is returned by NewU when the value does not fit in the field.
var ErrOverflow = errors.New("bitpack: value does not fit in field")

func checkField(width, lsb uint) {
	if width+lsb > WordBits {
		panic(fmt.Sprintf("bitpack: field of width %d at lsb %d exceeds %d bits", width, lsb, WordBits))
	}
}

func mask(width uint) uint32 {
	if width >= WordBits {
		return ^uint32(0)
	}
	return (uint32(1) << width) - 1
}

// FitsU reports whether value can be represented in width unsigned bits.
func FitsU(value uint32, width uint) bool {
	if width >= WordBits {
		return true
	}
	return value>>width == 0
}

// GetU extracts the width-bit field at lsb, zero-extended.
func GetU(word uint32, width, lsb uint) uint32 {
	checkField(width, lsb)
	if width == 0 {
		return 0
	}
	return (word >> lsb) & mask(width)
}

// NewU returns word with the width-bit field at lsb replaced by value. All
// other bits are unchanged. A value that does not fit is rejected with
// ErrOverflow and word is returned untouched; nothing is truncated.
func NewU(word uint32, width, lsb uint, value uint32) (uint32, error) {
	checkField(width, lsb)
	if !FitsU(value, width) {
		return word, fmt.Errorf("%w: %d in %d bits", ErrOverflow, value, width)
	}
	if width == 0 {
		return word, nil
	}
	m := mask(width) << lsb
	return (word &^ m) | (value << lsb), nil
}

// MustNewU is NewU for layouts where the caller already guarantees the fit.
// It panics on overflow.
func MustNewU(word uint32, width, lsb uint, value uint32) uint32 {
	w, err := NewU(word, width, lsb, value)
	if err != nil {
		panic(err)
	}
	return w
}
