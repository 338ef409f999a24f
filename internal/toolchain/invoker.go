package toolchain

import (
	"context"
	"path/filepath"
)

// Invoker runs stage binaries against sample source files.
type Invoker struct {
	// BinDir holds the stage binaries.
	BinDir string
	// TimeoutMs bounds one invocation; zero means wait forever.
	TimeoutMs int
	// TermGraceMs is the SIGTERM to SIGKILL grace period on timeout.
	TermGraceMs int
	// CaptureMaxBytes bounds each captured stream; zero means unbounded.
	CaptureMaxBytes int
	Env             map[string]string
}

// Invoke runs `<BinDir>/<bin> <source>` with the source path made
// absolute, capturing both streams and the exit status. A crashed or
// timed-out run is reported in the capture, not as an error; the error
// return means the binary could not be started.
func (iv *Invoker) Invoke(ctx context.Context, bin, source string) (Capture, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return Capture{ExitCode: -1}, err
	}
	return runCapture(ctx, commandSpec{
		program:         filepath.Join(iv.BinDir, bin),
		args:            []string{abs},
		timeoutMs:       iv.TimeoutMs,
		termGraceMs:     iv.TermGraceMs,
		captureMaxBytes: iv.CaptureMaxBytes,
		env:             iv.Env,
	})
}
