package stage

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/alanlang/touchstone/internal/fixture"
	"github.com/alanlang/touchstone/internal/manifest"
	"github.com/alanlang/touchstone/internal/toolchain"
)

// Deps carries the shared objects stages operate on. Everything is
// explicit: the fixture store, the toolchain and the writers all arrive
// here, never through package globals.
type Deps struct {
	Logger   *logrus.Logger
	Store    *fixture.Store
	Manifest manifest.Manifest
	Builder  *toolchain.Builder
	Invoker  *toolchain.Invoker
	Stdout   io.Writer
	Stderr   io.Writer
}

// Runner executes a stage.
type Runner func(ctx context.Context, in Envelope, deps Deps) (Envelope, error)

var registry = map[string]Runner{}

// Register adds a stage runner.
func Register(name string, r Runner) {
	registry[name] = r
}

// Run executes a registered stage by name.
func Run(ctx context.Context, name string, in Envelope, deps Deps) (Envelope, error) {
	r, ok := registry[name]
	if !ok {
		return Envelope{}, ErrUnknown{name: name}
	}
	return r(ctx, in, deps)
}

// Names returns the registered stage names, unsorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	return out
}

// ErrUnknown is returned when a stage is not found.
type ErrUnknown struct{ name string }

func (e ErrUnknown) Error() string { return "unknown stage: " + e.name }
