// Package config loads um.toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"um/pkg/console"
	"um/pkg/loader"
)

// FileName is the configuration file searched for by FindAndLoad.
const FileName = "um.toml"

type Config struct {
	Log     LogConfig     `toml:"log"`
	Machine MachineConfig `toml:"machine"`
	IO      IOConfig      `toml:"io"`
	Image   ImageConfig   `toml:"image"`
	Core    CoreConfig    `toml:"core"`

	// Path of the file this configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	Path      string `toml:"path"`
}

type MachineConfig struct {
	MaxSegmentWords uint32 `toml:"max-segment-words"`
	Trace           bool   `toml:"trace"`
}

type IOConfig struct {
	Flush string `toml:"flush"`
}

type ImageConfig struct {
	Extensions []string `toml:"extensions"`
}

type CoreConfig struct {
	Path string `toml:"path"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		IO:    IOConfig{Flush: console.FlushAuto.String()},
		Image: ImageConfig{Extensions: append([]string(nil), loader.DefaultExtensions...)},
	}
}

// Load reads the file at path on top of the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	c.Path = path

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir looking for um.toml. Defaults are
// returned when there is none.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

func (c *Config) Validate() error {
	if _, err := console.ParseFlushPolicy(c.IO.Flush); err != nil {
		return err
	}
	for _, ext := range c.Image.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("image extension %q must start with a dot", ext)
		}
	}
	return nil
}

// FlushPolicy returns the parsed io.flush setting.
func (c *Config) FlushPolicy() console.FlushPolicy {
	p, err := console.ParseFlushPolicy(c.IO.Flush)
	if err != nil {
		return console.FlushAuto
	}
	return p
}
