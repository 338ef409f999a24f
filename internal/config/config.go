package config

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
)

// Config is the harness configuration loaded from touchstone.cue. Every
// field is optional in the file; Load returns a fully defaulted value.
type Config struct {
	ConfigVersion string
	Project       Project
	Fixtures      Fixtures
	Build         Build
	Discovery     Discovery
	Run           Run
	Errors        Errors
	Normalize     Normalize
	UI            UI
	Log           Log
	Manifest      Manifest
}

// Project locates the compiler checkout under test.
type Project struct {
	Root     string
	SrcDir   string
	BinDir   string
	TestsDir string
}

// Fixtures locates the golden-output file.
type Fixtures struct {
	Path string
}

// Build names the external build program.
type Build struct {
	Program string
}

// Discovery controls sample-source discovery.
type Discovery struct {
	Ext         string
	NoGitignore bool
}

// Run bounds stage binary execution.
type Run struct {
	Workers         int
	TimeoutMs       int
	CaptureMaxBytes int
}

// Errors selects the pipeline error mode.
type Errors struct {
	Mode string
}

// Normalize holds the optional Lua output hook.
type Normalize struct {
	Inline string
}

// UI controls colored output: "auto", "always" or "never".
type UI struct {
	Color string
}

// Log selects logger level and format.
type Log struct {
	Level  string
	Format string
}

// Manifest locates the stage manifest file.
type Manifest struct {
	Path string
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Project: Project{
			Root:     ".",
			SrcDir:   "src",
			BinDir:   "bin",
			TestsDir: "tests",
		},
		Build:     Build{Program: "make"},
		Discovery: Discovery{Ext: ".alan"},
		Run:       Run{Workers: 1},
		Errors:    Errors{Mode: "keep-going"},
		UI:        UI{Color: "auto"},
		Log:       Log{Level: "warn", Format: "text"},
	}
}

// Load reads and validates the config file. A missing file is not an
// error: all defaults apply. File-relative paths stay as written; use the
// derived-path helpers to anchor them.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	v, err := compileCUE(path)
	if err != nil {
		return Config{}, err
	}
	if err := requireStringField(v, "configVersion"); err != nil {
		return Config{}, err
	}
	if err := v.LookupPath(cue.ParsePath("configVersion")).Decode(&cfg.ConfigVersion); err != nil {
		return Config{}, fmt.Errorf("invalid value for configVersion: %v", err)
	}
	if !IsSupportedConfigVersion(cfg.ConfigVersion) {
		return Config{}, fmt.Errorf("unsupported configVersion: %q (supported: %s)",
			cfg.ConfigVersion, SupportedConfigVersionsCSV())
	}
	if err := parseSections(v, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FixturesPath returns the configured fixture file, defaulting to
// tests.json under the tests directory.
func (c Config) FixturesPath() string {
	if c.Fixtures.Path != "" {
		return c.Fixtures.Path
	}
	return filepath.Join(c.Project.Root, c.Project.TestsDir, "tests.json")
}

// ManifestPath returns the configured stage manifest, defaulting to
// stages.yaml under the tests directory.
func (c Config) ManifestPath() string {
	if c.Manifest.Path != "" {
		return c.Manifest.Path
	}
	return filepath.Join(c.Project.Root, c.Project.TestsDir, "stages.yaml")
}

// SrcPath returns the build directory under the project root.
func (c Config) SrcPath() string {
	return filepath.Join(c.Project.Root, c.Project.SrcDir)
}

// BinPath returns the stage binary directory under the project root.
func (c Config) BinPath() string {
	return filepath.Join(c.Project.Root, c.Project.BinDir)
}

// TestsPath returns the sample source directory under the project root.
func (c Config) TestsPath() string {
	return filepath.Join(c.Project.Root, c.Project.TestsDir)
}
