// Package config loads casmc.toml and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/xyproto/env/v2"

	"sierracasm/internal/trace"
)

// FileName is the configuration file looked up from the working directory.
const FileName = "casmc.toml"

// ErrMalformed wraps every semantic problem in a configuration file.
var ErrMalformed = errors.New("malformed configuration")

// Compiler holds the [compiler] section.
type Compiler struct {
	Jobs           int `toml:"jobs"`
	MaxDiagnostics int `toml:"max_diagnostics"`
}

// Trace holds the [trace] section.
type Trace struct {
	Level     string `toml:"level"`
	Mode      string `toml:"mode"`
	Output    string `toml:"output"`
	RingSize  int    `toml:"ring_size"`
	Heartbeat string `toml:"heartbeat"`
}

// Config is the effective configuration.
type Config struct {
	Compiler Compiler `toml:"compiler"`
	Trace    Trace    `toml:"trace"`
	// Path is the file the configuration came from, empty for defaults.
	Path string `toml:"-"`
}

// Default returns the configuration used without a casmc.toml.
func Default() Config {
	return Config{
		Compiler: Compiler{Jobs: 0, MaxDiagnostics: 100},
		Trace:    Trace{Level: "off", Mode: "ring", Output: "-", RingSize: 4096},
	}
}

// Find walks up from startDir to locate casmc.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// Load reads path over the defaults. Keys left out keep their defaults.
func Load(path string) (Config, error) {
	var raw Config
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: %w: unknown keys %s", path, ErrMalformed, strings.Join(keys, ", "))
	}

	cfg := Default()
	cfg.Path = path
	if meta.IsDefined("compiler", "jobs") {
		cfg.Compiler.Jobs = raw.Compiler.Jobs
	}
	if meta.IsDefined("compiler", "max_diagnostics") {
		cfg.Compiler.MaxDiagnostics = raw.Compiler.MaxDiagnostics
	}
	if meta.IsDefined("trace", "level") {
		cfg.Trace.Level = raw.Trace.Level
	}
	if meta.IsDefined("trace", "mode") {
		cfg.Trace.Mode = raw.Trace.Mode
	}
	if meta.IsDefined("trace", "output") {
		cfg.Trace.Output = raw.Trace.Output
	}
	if meta.IsDefined("trace", "ring_size") {
		cfg.Trace.RingSize = raw.Trace.RingSize
	}
	if meta.IsDefined("trace", "heartbeat") {
		cfg.Trace.Heartbeat = raw.Trace.Heartbeat
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadFrom finds and loads casmc.toml above startDir, falling back to the
// defaults when there is none.
func LoadFrom(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// ApplyEnv overrides cfg with CASMC_JOBS, CASMC_TRACE_LEVEL and
// CASMC_TRACE_OUTPUT when they are set.
func (c *Config) ApplyEnv() {
	if env.Has("CASMC_JOBS") {
		c.Compiler.Jobs = env.Int("CASMC_JOBS", c.Compiler.Jobs)
	}
	c.Trace.Level = env.Str("CASMC_TRACE_LEVEL", c.Trace.Level)
	c.Trace.Output = env.Str("CASMC_TRACE_OUTPUT", c.Trace.Output)
}

// Validate reports every malformed value at once.
func (c Config) Validate() error {
	var errs []error
	if c.Compiler.Jobs < 0 {
		errs = append(errs, fmt.Errorf("compiler.jobs must not be negative, got %d", c.Compiler.Jobs))
	}
	if c.Compiler.MaxDiagnostics < 0 {
		errs = append(errs, fmt.Errorf("compiler.max_diagnostics must not be negative, got %d", c.Compiler.MaxDiagnostics))
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		errs = append(errs, fmt.Errorf("trace.level: %w", err))
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		errs = append(errs, fmt.Errorf("trace.mode: %w", err))
	}
	if c.Trace.RingSize < 0 {
		errs = append(errs, fmt.Errorf("trace.ring_size must not be negative, got %d", c.Trace.RingSize))
	}
	if _, err := c.HeartbeatInterval(); err != nil {
		errs = append(errs, fmt.Errorf("trace.heartbeat: %w", err))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrMalformed, errors.Join(errs...))
}

// HeartbeatInterval parses trace.heartbeat; empty disables heartbeats.
func (c Config) HeartbeatInterval() (time.Duration, error) {
	if c.Trace.Heartbeat == "" {
		return 0, nil
	}
	return time.ParseDuration(c.Trace.Heartbeat)
}

// TraceConfig converts the [trace] section for trace.New.
func (c Config) TraceConfig() (trace.Config, error) {
	level, err := trace.ParseLevel(c.Trace.Level)
	if err != nil {
		return trace.Config{}, err
	}
	mode, err := trace.ParseMode(c.Trace.Mode)
	if err != nil {
		return trace.Config{}, err
	}
	hb, err := c.HeartbeatInterval()
	if err != nil {
		return trace.Config{}, err
	}
	return trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     trace.FormatAuto,
		OutputPath: c.Trace.Output,
		RingSize:   c.Trace.RingSize,
		Heartbeat:  hb,
	}, nil
}
