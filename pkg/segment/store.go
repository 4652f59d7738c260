package segment

import (
	"math"

	"um/pkg/errors"
	"um/pkg/types"
)

// ProgramID is the segment holding the running instruction stream.
const ProgramID types.Word = 0

type slot struct {
	words  []types.Word
	mapped bool
}

// Segment is a copy of one mapped segment, used for diagnostics.
type Segment struct {
	ID    types.Word
	Words []types.Word
}

// Store is the machine's segmented memory: an arena of fixed-length word
// buffers addressed by id, plus a stack of unmapped ids waiting for reuse.
//
// Slices handed to the store become owned by it, and no method returns a
// slice that aliases a live segment.
type Store struct {
	slots []slot
	free  []types.Word // LIFO, never contains ProgramID

	mapped    int
	maxMapped int

	// MaxWords caps the length of a single allocation. Zero means unlimited.
	MaxWords types.Word
}

// NewStore creates a store whose segment 0 is program. The store takes
// ownership of program.
func NewStore(program []types.Word) *Store {
	if program == nil {
		program = []types.Word{}
	}
	return &Store{
		slots:     []slot{{words: program, mapped: true}},
		mapped:    1,
		maxMapped: 1,
	}
}

// lookup returns the words of a mapped segment.
func (s *Store) lookup(id types.Word) ([]types.Word, error) {
	if uint64(id) >= uint64(len(s.slots)) {
		return nil, errors.Faultf(errors.FaultSegment, "segment %d does not exist", id)
	}
	sl := &s.slots[id]
	if !sl.mapped {
		return nil, errors.Faultf(errors.FaultSegment, "segment %d is not mapped", id)
	}
	return sl.words, nil
}

// Allocate maps a new zero-filled segment of length words and returns its
// id. The most recently freed id is reused before a fresh one is created.
func (s *Store) Allocate(length types.Word) (types.Word, error) {
	if s.MaxWords != 0 && length > s.MaxWords {
		return 0, errors.Faultf(errors.FaultResource, "segment of %d words exceeds the limit of %d words", length, s.MaxWords)
	}

	var id types.Word
	if n := len(s.free); n > 0 {
		id = s.free[n-1]
		s.free = s.free[:n-1]
		s.slots[id] = slot{words: make([]types.Word, length), mapped: true}
	} else {
		if uint64(len(s.slots)) > math.MaxUint32 {
			return 0, errors.Faultf(errors.FaultResource, "segment ids exhausted")
		}
		id = types.Word(len(s.slots))
		s.slots = append(s.slots, slot{words: make([]types.Word, length), mapped: true})
	}

	s.mapped++
	s.maxMapped = max(s.maxMapped, s.mapped)
	return id, nil
}

// Free unmaps segment id and makes the id available for reuse. Segment 0,
// ids that were never allocated and already unmapped ids are rejected.
func (s *Store) Free(id types.Word) error {
	if id == ProgramID {
		return errors.Faultf(errors.FaultUnmap, "cannot unmap segment 0")
	}
	if uint64(id) >= uint64(len(s.slots)) {
		return errors.Faultf(errors.FaultUnmap, "cannot unmap segment %d: it does not exist", id)
	}
	if !s.slots[id].mapped {
		return errors.Faultf(errors.FaultUnmap, "cannot unmap segment %d: it is not mapped", id)
	}

	s.slots[id] = slot{}
	s.free = append(s.free, id)
	s.mapped--
	return nil
}

// Read returns word offset of segment id.
func (s *Store) Read(id, offset types.Word) (types.Word, error) {
	words, err := s.lookup(id)
	if err != nil {
		return 0, err
	}
	if uint64(offset) >= uint64(len(words)) {
		return 0, outOfBounds(id, offset, len(words))
	}
	return words[offset], nil
}

// Write replaces word offset of segment id with value.
func (s *Store) Write(id, offset, value types.Word) error {
	words, err := s.lookup(id)
	if err != nil {
		return err
	}
	if uint64(offset) >= uint64(len(words)) {
		return outOfBounds(id, offset, len(words))
	}
	words[offset] = value
	return nil
}

// Fetch reads the instruction at pc from segment 0.
func (s *Store) Fetch(pc types.Word) (types.Word, error) {
	if len(s.slots) == 0 || !s.slots[ProgramID].mapped {
		return 0, errors.Faultf(errors.FaultProgramCounter, "no program is loaded")
	}
	program := s.slots[ProgramID].words
	if uint64(pc) >= uint64(len(program)) {
		return 0, errors.Faultf(errors.FaultProgramCounter, "program counter %d is past the end of a %d-word program", pc, len(program))
	}
	return program[pc], nil
}

// DuplicateIntoZero replaces segment 0 with an independent copy of segment
// id. Duplicating segment 0 into itself leaves it untouched.
func (s *Store) DuplicateIntoZero(id types.Word) error {
	words, err := s.lookup(id)
	if err != nil {
		return err
	}
	if id == ProgramID {
		return nil
	}
	program := make([]types.Word, len(words))
	copy(program, words)
	s.slots[ProgramID].words = program
	return nil
}

// Len returns the length of segment id.
func (s *Store) Len(id types.Word) (types.Word, error) {
	words, err := s.lookup(id)
	if err != nil {
		return 0, err
	}
	return types.Word(len(words)), nil
}

// Mapped returns the number of mapped segments, segment 0 included.
func (s *Store) Mapped() int {
	return s.mapped
}

// PeakMapped returns the largest number of segments mapped at once.
func (s *Store) PeakMapped() int {
	return s.maxMapped
}

// Slots returns the number of ids ever handed out, segment 0 included.
func (s *Store) Slots() int {
	return len(s.slots)
}

// FreeIDs returns the reusable ids, most recently freed last.
func (s *Store) FreeIDs() []types.Word {
	out := make([]types.Word, len(s.free))
	copy(out, s.free)
	return out
}

// Snapshot copies every mapped segment in id order.
func (s *Store) Snapshot() []Segment {
	out := make([]Segment, 0, s.mapped)
	for id, sl := range s.slots {
		if !sl.mapped {
			continue
		}
		words := make([]types.Word, len(sl.words))
		copy(words, sl.words)
		out = append(out, Segment{ID: types.Word(id), Words: words})
	}
	return out
}

// Release drops every segment, segment 0 included. The store is unusable
// afterwards; Fetch reports that no program is loaded.
func (s *Store) Release() {
	s.slots = nil
	s.free = nil
	s.mapped = 0
}

func outOfBounds(id, offset types.Word, length int) error {
	return errors.Faultf(errors.FaultBounds, "offset %d is out of bounds for segment %d of length %d", offset, id, length)
}
