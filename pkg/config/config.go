// Package config handles the optional hvm.toml settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/zurustar/hvm/pkg/cli"
	"github.com/zurustar/hvm/pkg/logger"
)

// DefaultFileName is looked up in the working directory when no --config
// flag is given.
const DefaultFileName = "hvm.toml"

// Settings holds defaults for the command-line options.
type Settings struct {
	Init     string `toml:"init"`
	Trace    bool   `toml:"trace"`
	LogLevel string `toml:"log_level"`
	Dump     string `toml:"dump"`

	// Dir is the directory containing the settings file (set at load time).
	// Relative paths in the file are resolved against it.
	Dir string `toml:"-"`
}

// Load parses the settings file at path.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var s Settings
	md, err := toml.Decode(string(data), &s)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q in %s", undecoded[0].String(), path)
	}

	if s.LogLevel != "" {
		if _, err := logger.ParseLevel(s.LogLevel); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	s.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	return &s, nil
}

// FindAndLoad loads DefaultFileName from dir. Returns nil if the file does
// not exist.
func FindAndLoad(dir string) (*Settings, error) {
	path := filepath.Join(dir, DefaultFileName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot stat %s: %w", path, err)
	}
	return Load(path)
}

// Apply fills options not given on the command line or in the environment.
// A nil receiver only applies the built-in defaults.
func (s *Settings) Apply(cfg *cli.Config) {
	if s != nil {
		if cfg.InitPath == "" {
			cfg.InitPath = s.resolve(s.Init)
		}
		if cfg.DumpPath == "" {
			cfg.DumpPath = s.resolve(s.Dump)
		}
		if cfg.LogLevel == "" {
			cfg.LogLevel = s.LogLevel
		}
		if !cfg.TraceSet {
			cfg.Trace = s.Trace
		}
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = logger.DefaultLevel
	}
}

func (s *Settings) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.Dir, p)
}
