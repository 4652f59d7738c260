package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tliron/kutil/util"

	"um/pkg/coredump"
	"um/pkg/types"
	"um/pkg/um"
)

func main() {
	util.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("umcore", flag.ContinueOnError)
	fs.SetOutput(stderr)
	window := fs.Int("window", 8, "Instructions to disassemble on each side of the pc")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: umcore [flags] <core>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 || *window < 0 {
		fs.Usage()
		return 2
	}

	core, err := coredump.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "umcore: %v\n", err)
		return 1
	}
	printSummary(stdout, core)
	printDisassembly(stdout, core.ProgramSegment(), core.PC, *window)
	return 0
}

func printSummary(w io.Writer, c *coredump.Core) {
	fmt.Fprintf(w, "run        %s\n", c.RunID)
	if c.Program != "" {
		fmt.Fprintf(w, "program    %s\n", c.Program)
	}
	fmt.Fprintf(w, "digest     %x\n", c.ImageDigest)
	fmt.Fprintf(w, "status     %s after %d steps\n", c.Status, c.Steps)
	if c.Fault != nil {
		fmt.Fprintf(w, "fault      %s\n", c.Fault.Message)
	}
	fmt.Fprintf(w, "pc         %d\n", c.PC)
	fmt.Fprintf(w, "registers  %s\n", um.Registers(c.Registers))
	fmt.Fprintf(w, "segments   %d mapped, %d free ids\n", len(c.Segments), len(c.FreeIDs))
	for _, s := range c.Segments {
		fmt.Fprintf(w, "  %6d  %d words\n", s.ID, len(s.Words))
	}
}

func printDisassembly(w io.Writer, program []types.Word, pc types.Word, window int) {
	if len(program) == 0 {
		fmt.Fprintln(w, "segment 0 was not captured")
		return
	}
	start := int64(pc) - int64(window)
	if start < 0 {
		start = 0
	}
	end := min(int64(pc)+int64(window), int64(len(program))-1)

	fmt.Fprintln(w)
	for i := start; i <= end; i++ {
		marker := "  "
		if i == int64(pc) {
			marker = "=>"
		}
		word := program[i]
		fmt.Fprintf(w, "%s %6d  %08x  %s\n", marker, i, uint32(word), um.Disassemble(word))
	}
}
