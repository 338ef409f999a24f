package stage

import (
	"github.com/alanlang/touchstone/internal/config"
)

// Envelope is the JSON-serializable contract flowing between stages.
// Field order is stable to keep JSON deterministic in tests.
type Envelope struct {
	Records []Record `json:"records"`
	Meta    *Meta    `json:"meta,omitempty"`
	Errors  []Error  `json:"errors,omitempty"`
}

// Error represents an envelope-level stage error.
type Error struct {
	Stage   string `json:"stage"`
	Locator string `json:"locator,omitempty"`
	Message string `json:"message"`
}

// Meta holds run-wide settings and results with deterministic JSON field
// order.
type Meta struct {
	ContractVersion string          `json:"contractVersion,omitempty"`
	SessionID       string          `json:"sessionId,omitempty"`
	Stage           string          `json:"stage,omitempty"`
	Project         *ProjectMeta    `json:"project,omitempty"`
	Discovery       *DiscoveryMeta  `json:"discovery,omitempty"`
	Fixtures        *FixturesMeta   `json:"fixtures,omitempty"`
	Stages          []string        `json:"stages,omitempty"`
	Run             *RunMeta        `json:"run,omitempty"`
	Errors          *ErrorsMeta     `json:"errors,omitempty"`
	Normalize       *NormalizeMeta  `json:"normalize,omitempty"`
	Output          *OutputMeta     `json:"output,omitempty"`
	Provenance      *ProvenanceMeta `json:"provenance,omitempty"`
	Builds          []BuildMeta     `json:"builds,omitempty"`
	Orphans         []string        `json:"orphans,omitempty"`
}

// ProjectMeta locates the compiler checkout.
type ProjectMeta struct {
	Root     string `json:"root,omitempty"`
	SrcDir   string `json:"srcDir,omitempty"`
	BinDir   string `json:"binDir,omitempty"`
	TestsDir string `json:"testsDir,omitempty"`
}

// DiscoveryMeta holds source discovery options.
type DiscoveryMeta struct {
	Ext         string `json:"ext,omitempty"`
	NoGitignore bool   `json:"noGitignore,omitempty"`
}

// FixturesMeta locates the fixture file.
type FixturesMeta struct {
	Path string `json:"path,omitempty"`
}

// RunMeta bounds stage binary execution.
type RunMeta struct {
	Workers         int `json:"workers,omitempty"`
	TimeoutMs       int `json:"timeoutMs,omitempty"`
	CaptureMaxBytes int `json:"captureMaxBytes,omitempty"`
}

// ErrorsMeta selects error handling.
type ErrorsMeta struct {
	Mode        string `json:"mode,omitempty"`
	EmbedErrors bool   `json:"embedErrors,omitempty"`
}

// NormalizeMeta holds the optional Lua output hook.
type NormalizeMeta struct {
	Inline string `json:"inline,omitempty"`
}

// OutputMeta controls report serialization.
type OutputMeta struct {
	Out    string `json:"out,omitempty"`
	Pretty bool   `json:"pretty,omitempty"`
	Lines  bool   `json:"lines,omitempty"`
}

// ProvenanceMeta is the compiler checkout's git position, when known.
type ProvenanceMeta struct {
	Commit string `json:"commit,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// BuildMeta is the recorded outcome of one stage build.
type BuildMeta struct {
	Stage  string `json:"stage"`
	Target string `json:"target"`
	Status string `json:"status"`
	Stderr string `json:"stderr,omitempty"`
	Cached bool   `json:"cached,omitempty"`
}

// NewMeta derives envelope metadata from the harness configuration for a
// run over the requested stage names.
func NewMeta(cfg config.Config, requested []string, sessionID string) *Meta {
	return &Meta{
		SessionID: sessionID,
		Project: &ProjectMeta{
			Root:     cfg.Project.Root,
			SrcDir:   cfg.Project.SrcDir,
			BinDir:   cfg.Project.BinDir,
			TestsDir: cfg.Project.TestsDir,
		},
		Discovery: &DiscoveryMeta{
			Ext:         cfg.Discovery.Ext,
			NoGitignore: cfg.Discovery.NoGitignore,
		},
		Fixtures: &FixturesMeta{Path: cfg.FixturesPath()},
		Stages:   append([]string(nil), requested...),
		Run: &RunMeta{
			Workers:         cfg.Run.Workers,
			TimeoutMs:       cfg.Run.TimeoutMs,
			CaptureMaxBytes: cfg.Run.CaptureMaxBytes,
		},
		Errors:    &ErrorsMeta{Mode: cfg.Errors.Mode, EmbedErrors: true},
		Normalize: &NormalizeMeta{Inline: cfg.Normalize.Inline},
	}
}

// determineRoot returns the project root from meta, defaulting to ".".
func determineRoot(in Envelope) string {
	if in.Meta != nil && in.Meta.Project != nil && in.Meta.Project.Root != "" {
		return in.Meta.Project.Root
	}
	return "."
}

// requestedStages returns the stage names a run targets, defaulting to
// the manifest's declared stages.
func requestedStages(in Envelope, deps Deps) []string {
	if in.Meta != nil && len(in.Meta.Stages) > 0 {
		return in.Meta.Stages
	}
	return deps.Manifest.Names()
}
