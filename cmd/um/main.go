package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/tliron/kutil/util"

	"um/pkg/config"
	"um/pkg/console"
	"um/pkg/coredump"
	"um/pkg/loader"
	"um/pkg/types"
	"um/pkg/um"
)

const (
	exitHalt  = 0
	exitFault = 1
	exitUsage = 2
)

func main() {
	util.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("um", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to a um.toml file (default: search upwards from the working directory)")
	verbosity := fs.Int("v", 0, "Log verbosity: -4 silences logging, 1 is info, 2 is debug")
	logPath := fs.String("log", "", "Write logs to this file instead of stderr")
	trace := fs.Bool("trace", false, "Log every executed instruction")
	corePath := fs.String("core", "", "Write a core dump here when the machine faults")
	flush := fs.String("flush", "", "Output flushing: auto, byte or exit")
	maxWords := fs.Uint("max-segment-words", 0, "Largest segment a program may map, 0 for no limit")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: um [flags] <image.um>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}
	imagePath := fs.Arg(0)

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.FindAndLoad(".")
	}
	if err != nil {
		fmt.Fprintf(stderr, "um: %v\n", err)
		return exitUsage
	}

	// Flags given on the command line win over the file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":
			cfg.Log.Verbosity = *verbosity
		case "log":
			cfg.Log.Path = *logPath
		case "trace":
			cfg.Machine.Trace = *trace
		case "core":
			cfg.Core.Path = *corePath
		case "flush":
			cfg.IO.Flush = *flush
		case "max-segment-words":
			cfg.Machine.MaxSegmentWords = uint32(*maxWords)
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "um: %v\n", err)
		return exitUsage
	}

	if cfg.Log.Path != "" {
		commonlog.Configure(cfg.Log.Verbosity, &cfg.Log.Path)
	} else {
		commonlog.Configure(cfg.Log.Verbosity, nil)
	}
	if cfg.Machine.Trace {
		commonlog.SetMaxLevel(commonlog.Debug, "um", "machine")
	}
	log := commonlog.GetLogger("um")
	if cfg.Path != "" {
		log.Debug("configuration loaded", "path", cfg.Path)
	}

	if err := loader.CheckExtension(imagePath, cfg.Image.Extensions); err != nil {
		fmt.Fprintf(stderr, "um: %v\n", err)
		return exitUsage
	}
	img, err := loader.LoadFile(imagePath)
	if err != nil {
		fmt.Fprintf(stderr, "um: %v\n", err)
		return exitUsage
	}

	runID := uuid.NewString()
	machineLog := commonlog.NewKeyValueLogger(commonlog.GetLogger("um.machine"), "run", runID)
	log.Info("booting image",
		"run", runID,
		"path", img.Path,
		"words", len(img.Words),
		"digest", fmt.Sprintf("%x", img.Digest))

	con := console.New(stdin, stdout, cfg.FlushPolicy())
	m := um.New(img.Words, con, con, um.Config{
		MaxSegmentWords: types.Word(cfg.Machine.MaxSegmentWords),
		Trace:           cfg.Machine.Trace,
		Logger:          machineLog,
	})
	defer m.Close()

	runErr := m.Run()
	flushErr := con.Flush()

	stats := m.Stats()
	read, written := con.Counts()
	log.Info("run finished",
		"run", runID,
		"status", m.Status().String(),
		"steps", stats.Steps,
		"maps", stats.Maps,
		"unmaps", stats.Unmaps,
		"program-loads", stats.ProgramLoads,
		"peak-mapped", stats.PeakMapped,
		"bytes-in", read,
		"bytes-out", written)

	if runErr != nil {
		fmt.Fprintf(stderr, "um: %v\n", runErr)
		if cfg.Core.Path != "" {
			writeCore(cfg.Core.Path, m, runID, img, stderr)
		}
		return exitFault
	}
	if flushErr != nil {
		fmt.Fprintf(stderr, "um: failed to flush output: %v\n", flushErr)
		return exitFault
	}
	return exitHalt
}

func writeCore(path string, m *um.Machine, runID string, img *loader.Image, stderr io.Writer) {
	core := coredump.FromSnapshot(m.Snapshot(), runID, img)
	if err := coredump.WriteFile(path, core); err != nil {
		fmt.Fprintf(stderr, "um: %v\n", err)
		return
	}
	fmt.Fprintf(stderr, "um: core dumped to %s\n", path)
}
