package stage

import "github.com/alanlang/touchstone/internal/compare"

// Record is the per-source-file shape in the envelope. Using a struct
// ensures deterministic JSON field ordering.
type Record struct {
	// Locator is the project-relative POSIX path of the sample source.
	Locator string       `json:"locator"`
	Source  *SourceInfo  `json:"source,omitempty"`
	Fixture *FixtureInfo `json:"fixture,omitempty"`
	// Captures holds fresh toolchain output per stage name.
	Captures map[string]*CaptureInfo `json:"captures,omitempty"`
	// Verdicts holds comparison outcomes per stage name.
	Verdicts map[string]*compare.Verdict `json:"verdicts,omitempty"`
	// Recorded holds the record-results outcome per stage name.
	Recorded map[string]string `json:"recorded,omitempty"`
	Error    *RecError         `json:"error,omitempty"`
}

// SourceInfo is the stat result for the sample source file.
type SourceInfo struct {
	SizeBytes int64   `json:"sizeBytes"`
	Mtime     float64 `json:"mtime"`
	Missing   bool    `json:"missing,omitempty"`
}

// FixtureInfo summarizes the stored case for the locator, if any.
type FixtureInfo struct {
	Present bool     `json:"present"`
	Checked bool     `json:"checked,omitempty"`
	Stale   bool     `json:"stale,omitempty"`
	Stages  []string `json:"stages,omitempty"`
}

// CaptureInfo is one stage binary invocation outcome.
type CaptureInfo struct {
	Stdout          string `json:"stdout"`
	Stderr          string `json:"stderr"`
	ExitCode        int    `json:"exitCode"`
	Signal          string `json:"signal,omitempty"`
	Crashed         bool   `json:"crashed,omitempty"`
	TimedOut        bool   `json:"timedOut,omitempty"`
	StdoutTruncated bool   `json:"stdoutTruncated,omitempty"`
	StderrTruncated bool   `json:"stderrTruncated,omitempty"`
	// Skipped names why no invocation ran, e.g. "build-failed".
	Skipped string `json:"skipped,omitempty"`
}

// Recorded outcome values for record-results.
const (
	RecordedNew          = "recorded"
	RecordedUpdated      = "updated"
	RecordedUnchanged    = "unchanged"
	SkippedApproved      = "skipped-approved"
	SkippedCrash         = "skipped-crash"
	SkippedTimeout       = "skipped-timeout"
	SkippedBuildFailed   = "skipped-build-failed"
	SkippedMissingSource = "skipped-missing-source"
)
