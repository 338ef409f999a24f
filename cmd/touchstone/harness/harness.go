// Package harness assembles the shared objects every touchstone
// subcommand needs: configuration, the stage manifest, the logger and the
// pipeline dependencies. Subcommands read the root's persistent flags
// through here instead of carrying their own copies.
package harness

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/alanlang/touchstone/internal/config"
	"github.com/alanlang/touchstone/internal/fixture"
	"github.com/alanlang/touchstone/internal/logging"
	"github.com/alanlang/touchstone/internal/manifest"
	"github.com/alanlang/touchstone/internal/stage"
	"github.com/alanlang/touchstone/internal/toolchain"
	"github.com/alanlang/touchstone/internal/ui"
)

// Env is everything a subcommand run needs.
type Env struct {
	Config   config.Config
	Manifest manifest.Manifest
	Logger   *logrus.Logger
}

// Load reads the root persistent flags from any subcommand, loads the
// config file and the stage manifest, and configures logging and color.
func Load(cmd *cobra.Command) (Env, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	noColor, _ := cmd.Flags().GetBool("no-color")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return Env{}, err
	}
	if level == "" {
		level = cfg.Log.Level
	}
	if format == "" {
		format = cfg.Log.Format
	}
	logger, err := logging.New(cmd.ErrOrStderr(), level, format)
	if err != nil {
		return Env{}, err
	}
	ui.SetNoColor(noColor || cfg.UI.Color == "never" || os.Getenv("NO_COLOR") != "")

	m, err := manifest.Load(cfg.ManifestPath())
	if err != nil {
		return Env{}, err
	}
	return Env{Config: cfg, Manifest: m, Logger: logger}, nil
}

// Deps builds the stage dependency set for a batch run writing to out.
func (e Env) Deps(out, errw io.Writer) stage.Deps {
	cfg := e.Config
	return stage.Deps{
		Logger:   e.Logger,
		Store:    fixture.NewStore(),
		Manifest: e.Manifest,
		Builder:  toolchain.NewBuilder(cfg.Build.Program, cfg.SrcPath(), e.Logger),
		Invoker: &toolchain.Invoker{
			BinDir:          cfg.BinPath(),
			TimeoutMs:       cfg.Run.TimeoutMs,
			CaptureMaxBytes: cfg.Run.CaptureMaxBytes,
		},
		Stdout: out,
		Stderr: errw,
	}
}

// RunStages executes a prepared stage order over the envelope.
func RunStages(ctx context.Context, in stage.Envelope, order []string, deps stage.Deps) (stage.Envelope, error) {
	out := in
	var err error
	for _, name := range order {
		out, err = stage.Run(ctx, name, out, deps)
		if err != nil {
			return stage.Envelope{}, err
		}
	}
	return out, nil
}

// SeedRecords resolves command-line path arguments into envelope records.
// Each argument must resolve against the fixture store by the suffix
// rules; with allowNew, an argument naming a real source file under the
// project root becomes a fresh locator instead.
func SeedRecords(cfg config.Config, st *fixture.Store, args []string, allowNew bool) ([]stage.Record, error) {
	if err := st.Load(cfg.FixturesPath()); err != nil {
		return nil, err
	}
	var records []stage.Record
	for _, arg := range args {
		key, err := st.Resolve(arg)
		if err != nil {
			var notFound *fixture.NotFoundError
			if allowNew && errors.As(err, &notFound) {
				loc, locErr := locatorFor(cfg, arg)
				if locErr != nil {
					return nil, err
				}
				records = append(records, stage.Record{Locator: loc})
				continue
			}
			return nil, err
		}
		records = append(records, stage.Record{Locator: key})
	}
	return records, nil
}

func locatorFor(cfg config.Config, arg string) (string, error) {
	loc, err := toLocator(cfg.Project.Root, arg)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(joinLocator(cfg.Project.Root, loc)); err != nil {
		return "", err
	}
	return loc, nil
}
