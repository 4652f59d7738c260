// Package coredump records the state of a stopped machine for post-mortem
// inspection.
package coredump

import (
	"fmt"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"

	"um/pkg/errors"
	"um/pkg/loader"
	"um/pkg/types"
	"um/pkg/um"
)

// Version is bumped whenever the layout of Core changes incompatibly.
const Version = 1

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("coredump: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Core is the on-disk post-mortem image.
type Core struct {
	Version     int                            `cbor:"1,keyasint"`
	RunID       string                         `cbor:"2,keyasint"`
	Created     int64                          `cbor:"3,keyasint"` // unix seconds
	Program     string                         `cbor:"4,keyasint,omitempty"`
	ImageDigest [32]byte                       `cbor:"5,keyasint"`
	Status      string                         `cbor:"6,keyasint"`
	PC          types.Word                     `cbor:"7,keyasint"`
	Registers   [types.NumRegisters]types.Word `cbor:"8,keyasint"`
	Segments    []Segment                      `cbor:"9,keyasint"`
	FreeIDs     []types.Word                   `cbor:"10,keyasint,omitempty"`
	Fault       *Fault                         `cbor:"11,keyasint,omitempty"`
	Steps       uint64                         `cbor:"12,keyasint"`
}

type Segment struct {
	ID    types.Word   `cbor:"1,keyasint"`
	Words []types.Word `cbor:"2,keyasint"`
}

type Fault struct {
	Kind        string `cbor:"1,keyasint"`
	Message     string `cbor:"2,keyasint"`
	Instruction string `cbor:"3,keyasint,omitempty"`
}

// FromSnapshot builds a core from a machine snapshot. img may be nil.
func FromSnapshot(snap um.Snapshot, runID string, img *loader.Image) *Core {
	c := &Core{
		Version:   Version,
		RunID:     runID,
		Created:   time.Now().Unix(),
		Status:    snap.Status.String(),
		PC:        snap.PC,
		Registers: snap.Registers,
		FreeIDs:   snap.FreeIDs,
		Steps:     snap.Stats.Steps,
	}
	if img != nil {
		c.Program = img.Path
		c.ImageDigest = img.Digest
	}
	for _, s := range snap.Segments {
		c.Segments = append(c.Segments, Segment{ID: s.ID, Words: s.Words})
	}
	if snap.Fault != nil {
		c.Fault = fromFault(snap.Fault)
	}
	return c
}

func fromFault(f *errors.Fault) *Fault {
	return &Fault{
		Kind:        f.Kind.String(),
		Message:     f.Error(),
		Instruction: f.Instruction,
	}
}

// ProgramSegment returns segment 0, or nil if it was not captured.
func (c *Core) ProgramSegment() []types.Word {
	for _, s := range c.Segments {
		if s.ID == 0 {
			return s.Words
		}
	}
	return nil
}

// Marshal encodes c in canonical CBOR.
func Marshal(c *Core) ([]byte, error) {
	return encMode.Marshal(c)
}

// Unmarshal decodes a core and checks its version.
func Unmarshal(data []byte) (*Core, error) {
	var c Core
	if err := cbor.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("coredump: unmarshal core: %w", err)
	}
	if c.Version != Version {
		return nil, fmt.Errorf("coredump: unsupported core version %d", c.Version)
	}
	return &c, nil
}

// WriteFile writes c to path.
func WriteFile(path string, c *Core) error {
	data, err := Marshal(c)
	if err != nil {
		return fmt.Errorf("coredump: marshal core: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("coredump: %w", err)
	}
	return nil
}

// ReadFile reads a core written by WriteFile.
func ReadFile(path string) (*Core, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("coredump: %w", err)
	}
	return Unmarshal(data)
}
