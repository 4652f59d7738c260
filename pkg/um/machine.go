package um

import (
	"io"

	"github.com/tliron/commonlog"

	"um/pkg/errors"
	"um/pkg/segment"
	"um/pkg/types"
)

// Config tunes a Machine. The zero value is a machine with no limits.
type Config struct {
	// MaxSegmentWords caps a single Map request; zero means unlimited.
	MaxSegmentWords types.Word
	// Trace logs every instruction at debug level.
	Trace bool
	// Logger overrides the package logger, e.g. to tag lines with a run id.
	Logger commonlog.Logger
}

// Machine is the fetch-decode-execute engine. It exclusively owns its
// segment store; nothing outside the machine holds references into it.
type Machine struct {
	Registers Registers
	PC        types.Word

	store *segment.Store
	in    io.ByteReader
	out   io.ByteWriter

	status Status
	fault  *errors.Fault
	stats  Stats
	trace  bool
	log    commonlog.Logger
}

// New boots a machine with program as segment 0. The machine takes
// ownership of program. A nil in behaves as an empty input stream and a nil
// out discards output.
func New(program []types.Word, in io.ByteReader, out io.ByteWriter, cfg Config) *Machine {
	store := segment.NewStore(program)
	store.MaxWords = cfg.MaxSegmentWords

	logger := cfg.Logger
	if logger == nil {
		logger = commonlog.GetLogger("um.machine")
	}

	return &Machine{
		store:  store,
		in:     in,
		out:    out,
		status: StatusRunning,
		trace:  cfg.Trace && logger.AllowLevel(commonlog.Debug),
		log:    logger,
	}
}

// Run executes until the program halts or faults. It returns nil on halt and
// the *errors.Fault otherwise. An infinite guest loop never returns.
func (m *Machine) Run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = m.fail(errors.Faultf(errors.FaultInternal, "unexpected panic: %v", r), "")
		}
	}()

	for m.status == StatusRunning {
		if err := m.Step(); err != nil {
			return err
		}
	}
	return m.Err()
}

// Step executes a single instruction. On a machine that is no longer running
// it does nothing and returns the terminal error, if any.
func (m *Machine) Step() error {
	if m.status != StatusRunning {
		return m.Err()
	}

	word, err := m.store.Fetch(m.PC)
	if err != nil {
		return m.fail(err, "")
	}
	in, err := Decode(word)
	if err != nil {
		return m.fail(err, Disassemble(word))
	}

	if m.trace {
		m.log.Debugf("pc=%d %-18s %s", m.PC, in, m.Registers)
	}

	next, err := dispatchTable[in.Op](m, in)
	if err != nil {
		return m.fail(err, in.String())
	}
	m.PC = next
	m.stats.Steps++
	return nil
}

func (m *Machine) fail(err error, instruction string) error {
	f, ok := errors.AsFault(err)
	if !ok {
		f = errors.WrapFault(err, errors.FaultInternal, "unexpected error")
	}
	f.At(uint32(m.PC), instruction)

	m.status = StatusFaulted
	m.fault = f
	m.log.Error("machine fault",
		"kind", f.Kind.String(),
		"pc", f.PC,
		"steps", m.stats.Steps,
		"error", f.Error())
	return f
}

func (m *Machine) halt() {
	m.status = StatusHalted
	m.store.Release()
	m.log.Info("machine halted", "steps", m.stats.Steps+1)
}

// Close releases every segment. It is safe to call any number of times;
// stepping a closed machine faults because no program is loaded.
func (m *Machine) Close() {
	m.store.Release()
}

// Status reports whether the machine is running, halted or faulted.
func (m *Machine) Status() Status {
	return m.status
}

// Err returns the fault that stopped the machine, or nil.
func (m *Machine) Err() error {
	if m.fault == nil {
		return nil
	}
	return m.fault
}

// Stats returns the run counters.
func (m *Machine) Stats() Stats {
	s := m.stats
	s.PeakMapped = m.store.PeakMapped()
	return s
}

// Mapped returns the number of live segments, segment 0 included.
func (m *Machine) Mapped() int {
	return m.store.Mapped()
}

// Snapshot copies the machine state. Segments are empty once the machine
// has halted or been closed.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		Status:    m.status,
		PC:        m.PC,
		Registers: m.Registers,
		Segments:  m.store.Snapshot(),
		FreeIDs:   m.store.FreeIDs(),
		Fault:     m.fault,
		Stats:     m.Stats(),
	}
}
