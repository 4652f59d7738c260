package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"um/pkg/coredump"
	"um/pkg/loader"
	"um/pkg/types"
	"um/pkg/um"
)

var helloProgram = []types.Word{
	um.LoadImmediate(1, 'H'),
	um.ThreeRegister(um.Output, 0, 0, 1),
	um.LoadImmediate(1, 'i'),
	um.ThreeRegister(um.Output, 0, 0, 1),
	um.ThreeRegister(um.Halt, 0, 0, 0),
}

var divideProgram = []types.Word{
	um.LoadImmediate(1, 7),
	um.ThreeRegister(um.Div, 2, 1, 0),
	um.ThreeRegister(um.Halt, 0, 0, 0),
}

// setup writes an image and an empty config into a temp dir and returns
// their paths.
func setup(t *testing.T, name string, program []types.Word) (image, cfg string) {
	t.Helper()
	dir := t.TempDir()
	image = filepath.Join(dir, name)
	if err := os.WriteFile(image, loader.Bytes(program), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg = filepath.Join(dir, "um.toml")
	if err := os.WriteFile(cfg, []byte("[log]\nverbosity = -4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return image, cfg
}

func runCLI(t *testing.T, input string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(input), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunHalts(t *testing.T) {
	image, cfg := setup(t, "hello.um", helloProgram)
	code, stdout, stderr := runCLI(t, "", "-config", cfg, image)
	if code != exitHalt {
		t.Fatalf("exit code = %d, want %d (stderr %q)", code, exitHalt, stderr)
	}
	if stdout != "Hi" {
		t.Errorf("stdout = %q, want %q", stdout, "Hi")
	}
}

func TestRunEchoesInput(t *testing.T) {
	image, cfg := setup(t, "echo.umz", []types.Word{
		um.ThreeRegister(um.Input, 0, 0, 1),
		um.ThreeRegister(um.Output, 0, 0, 1),
		um.ThreeRegister(um.Halt, 0, 0, 0),
	})
	code, stdout, _ := runCLI(t, "z", "-config", cfg, "-flush", "byte", image)
	if code != exitHalt || stdout != "z" {
		t.Errorf("exit %d, stdout %q; want 0, %q", code, stdout, "z")
	}
}

func TestRunFault(t *testing.T) {
	image, cfg := setup(t, "div.um", divideProgram)
	code, _, stderr := runCLI(t, "", "-config", cfg, image)
	if code != exitFault {
		t.Fatalf("exit code = %d, want %d", code, exitFault)
	}
	if !strings.Contains(stderr, "divide by zero") || !strings.Contains(stderr, "pc 1") {
		t.Errorf("stderr = %q, want the fault and its pc", stderr)
	}
}

func TestRunWritesCore(t *testing.T) {
	image, cfg := setup(t, "div.um", divideProgram)
	core := filepath.Join(t.TempDir(), "um.core")
	code, _, stderr := runCLI(t, "", "-config", cfg, "-core", core, image)
	if code != exitFault {
		t.Fatalf("exit code = %d, want %d", code, exitFault)
	}
	if !strings.Contains(stderr, "core dumped") {
		t.Errorf("stderr = %q, want a core dump notice", stderr)
	}

	c, err := coredump.ReadFile(core)
	if err != nil {
		t.Fatal(err)
	}
	if c.PC != 1 || c.Registers[1] != 7 || c.Program != image {
		t.Errorf("core pc=%d r1=%d program=%q", c.PC, c.Registers[1], c.Program)
	}
	if c.RunID == "" {
		t.Error("core has no run id")
	}
}

func TestRunResourceLimit(t *testing.T) {
	image, cfg := setup(t, "big.um", []types.Word{
		um.LoadImmediate(1, 100),
		um.ThreeRegister(um.Map, 0, 2, 1),
		um.ThreeRegister(um.Halt, 0, 0, 0),
	})
	code, _, stderr := runCLI(t, "", "-config", cfg, "-max-segment-words", "10", image)
	if code != exitFault || !strings.Contains(stderr, "resource") {
		t.Errorf("exit %d, stderr %q; want a resource fault", code, stderr)
	}
}

func TestRunUsageErrors(t *testing.T) {
	image, cfg := setup(t, "hello.um", helloProgram)
	wrongExt, _ := setup(t, "hello.bin", helloProgram)
	badConfig := filepath.Join(t.TempDir(), "um.toml")
	if err := os.WriteFile(badConfig, []byte("[machine]\nwarp = 9\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"no image", []string{"-config", cfg}},
		{"two images", []string{"-config", cfg, image, image}},
		{"unknown flag", []string{"-config", cfg, "-turbo", image}},
		{"wrong extension", []string{"-config", cfg, wrongExt}},
		{"missing image", []string{"-config", cfg, filepath.Join(t.TempDir(), "gone.um")}},
		{"bad config", []string{"-config", badConfig, image}},
		{"bad flush flag", []string{"-config", cfg, "-flush", "never", image}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, _ := runCLI(t, "", tt.args...)
			if code != exitUsage {
				t.Errorf("exit code = %d, want %d", code, exitUsage)
			}
			if stdout != "" {
				t.Errorf("stdout = %q, the image must not run", stdout)
			}
		})
	}
}
