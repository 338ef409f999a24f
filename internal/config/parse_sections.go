package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// compileCUE loads and compiles a CUE file at the given path.
func compileCUE(path string) (cue.Value, error) {
	if filepath.Ext(path) != ".cue" {
		return cue.Value{}, errors.New("unsupported config format: expected .cue")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("failed to read config: %w", err)
	}
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data)
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("invalid config: %v", err)
	}
	return v, nil
}

func requireStringField(v cue.Value, name string) error {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return fmt.Errorf("missing required field: %s", name)
	}
	if f.Kind() != cue.StringKind {
		return fmt.Errorf("invalid type for field: %s (expected string)", name)
	}
	return nil
}

func stringAt(v cue.Value, section, name string, dst *string) {
	f := v.LookupPath(cue.ParsePath(section + "." + name))
	if f.Exists() && f.Kind() == cue.StringKind {
		_ = f.Decode(dst)
	}
}

func boolAt(v cue.Value, section, name string, dst *bool) {
	f := v.LookupPath(cue.ParsePath(section + "." + name))
	if f.Exists() && f.Kind() == cue.BoolKind {
		_ = f.Decode(dst)
	}
}

func intAt(v cue.Value, section, name string, dst *int) {
	f := v.LookupPath(cue.ParsePath(section + "." + name))
	if f.Exists() && f.Kind() == cue.IntKind {
		_ = f.Decode(dst)
	}
}

func parseSections(v cue.Value, cfg *Config) error {
	stringAt(v, "project", "root", &cfg.Project.Root)
	stringAt(v, "project", "srcDir", &cfg.Project.SrcDir)
	stringAt(v, "project", "binDir", &cfg.Project.BinDir)
	stringAt(v, "project", "testsDir", &cfg.Project.TestsDir)

	stringAt(v, "fixtures", "path", &cfg.Fixtures.Path)
	stringAt(v, "build", "program", &cfg.Build.Program)

	stringAt(v, "discovery", "ext", &cfg.Discovery.Ext)
	boolAt(v, "discovery", "noGitignore", &cfg.Discovery.NoGitignore)

	intAt(v, "run", "workers", &cfg.Run.Workers)
	intAt(v, "run", "timeoutMs", &cfg.Run.TimeoutMs)
	intAt(v, "run", "captureMaxBytes", &cfg.Run.CaptureMaxBytes)

	stringAt(v, "errors", "mode", &cfg.Errors.Mode)
	stringAt(v, "normalize", "inline", &cfg.Normalize.Inline)
	stringAt(v, "ui", "color", &cfg.UI.Color)
	stringAt(v, "log", "level", &cfg.Log.Level)
	stringAt(v, "log", "format", &cfg.Log.Format)
	stringAt(v, "manifest", "path", &cfg.Manifest.Path)

	switch cfg.Errors.Mode {
	case "keep-going", "fail-fast":
	default:
		return fmt.Errorf("invalid errors.mode: %q (expected keep-going or fail-fast)", cfg.Errors.Mode)
	}
	switch cfg.UI.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid ui.color: %q (expected auto, always or never)", cfg.UI.Color)
	}
	if cfg.Run.Workers < 1 {
		return fmt.Errorf("invalid run.workers: %d (must be >= 1)", cfg.Run.Workers)
	}
	if cfg.Run.TimeoutMs < 0 {
		return fmt.Errorf("invalid run.timeoutMs: %d (must be >= 0)", cfg.Run.TimeoutMs)
	}
	if cfg.Run.CaptureMaxBytes < 0 {
		return fmt.Errorf("invalid run.captureMaxBytes: %d (must be >= 0)", cfg.Run.CaptureMaxBytes)
	}
	return nil
}
