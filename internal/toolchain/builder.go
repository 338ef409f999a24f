package toolchain

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/alanlang/touchstone/internal/manifest"
)

// BuildStatus classifies one build attempt.
type BuildStatus int

const (
	// BuildOK: exit zero, clean stderr.
	BuildOK BuildStatus = iota
	// BuildWarn: exit zero but the build program wrote to stderr.
	BuildWarn
	// BuildFailed: nonzero exit.
	BuildFailed
)

func (s BuildStatus) String() string {
	switch s {
	case BuildOK:
		return "ok"
	case BuildWarn:
		return "warning"
	case BuildFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// BuildResult is the outcome of building one stage target.
type BuildResult struct {
	Stage  string
	Target string
	Status BuildStatus
	Stderr string
	// Cached means a previous successful build was reused and no process ran.
	Cached bool
}

// Builder runs the external build program for stage targets, caching
// successes per instance so a session builds each target at most once.
type Builder struct {
	Program string
	Dir     string
	Env     map[string]string
	Logger  *logrus.Logger

	cache map[string]BuildResult
}

// NewBuilder returns a builder running program in dir.
func NewBuilder(program, dir string, logger *logrus.Logger) *Builder {
	return &Builder{
		Program: program,
		Dir:     dir,
		Logger:  logger,
		cache:   map[string]BuildResult{},
	}
}

// Build runs `<program> <target>` in the build directory. Exit zero with
// empty stderr is ok; exit zero with stderr output is a warning (the
// result still counts as built and is cached); nonzero exit is a failure
// and is not cached. The returned error is reserved for commands that
// could not run at all.
func (b *Builder) Build(ctx context.Context, st manifest.Stage) (BuildResult, error) {
	if cached, ok := b.cache[st.Target]; ok {
		cached.Cached = true
		cached.Stage = st.Name
		return cached, nil
	}

	cap, err := runCapture(ctx, commandSpec{
		program: b.Program,
		args:    []string{st.Target},
		dir:     b.Dir,
		env:     b.Env,
	})
	if err != nil {
		return BuildResult{Stage: st.Name, Target: st.Target, Status: BuildFailed}, err
	}

	res := BuildResult{
		Stage:  st.Name,
		Target: st.Target,
		Stderr: cap.Stderr,
	}
	switch {
	case cap.ExitCode == 0 && strings.TrimSpace(cap.Stderr) == "":
		res.Status = BuildOK
	case cap.ExitCode == 0:
		res.Status = BuildWarn
		if b.Logger != nil {
			b.Logger.WithFields(logrus.Fields{
				"stage":  st.Name,
				"target": st.Target,
			}).Warnf("build succeeded with warnings: %s", firstLine(cap.Stderr))
		}
	default:
		res.Status = BuildFailed
		if b.Logger != nil {
			b.Logger.WithFields(logrus.Fields{
				"stage":  st.Name,
				"target": st.Target,
				"exit":   cap.ExitCode,
			}).Errorf("build failed: %s", firstLine(cap.Stderr))
		}
	}
	if res.Status != BuildFailed {
		b.cache[st.Target] = res
	}
	return res, nil
}

// Built reports whether the target has a cached successful build.
func (b *Builder) Built(target string) bool {
	_, ok := b.cache[target]
	return ok
}

// Reset drops the build cache.
func (b *Builder) Reset() {
	b.cache = map[string]BuildResult{}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
