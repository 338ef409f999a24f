package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Package toolchain runs the external compiler toolchain: the build
// program that produces stage binaries and the stage binaries themselves.
// Both are opaque commands; only their streams and exit status matter.

type limitedBuffer struct {
	max       int
	buf       bytes.Buffer
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if b.max <= 0 {
		_, _ = b.buf.Write(p)
		return n, nil
	}
	remain := b.max - b.buf.Len()
	if remain > 0 {
		if remain > len(p) {
			remain = len(p)
		}
		_, _ = b.buf.Write(p[:remain])
	}
	if len(p) > remain {
		b.truncated = true
	}
	return n, nil
}

func (b *limitedBuffer) String() string { return b.buf.String() }

// Capture is the observed outcome of one toolchain command.
type Capture struct {
	Stdout          string
	Stderr          string
	ExitCode        int
	Signal          string
	Crashed         bool
	TimedOut        bool
	StdoutTruncated bool
	StderrTruncated bool
}

// ExecError reports a command that could not be started at all, distinct
// from one that ran and exited nonzero.
type ExecError struct {
	Program string
	Reason  string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("program %s %s", e.Program, e.Reason)
}

type commandSpec struct {
	program         string
	args            []string
	dir             string
	env             map[string]string
	timeoutMs       int
	termGraceMs     int
	captureMaxBytes int
}

const defaultTermGraceMs = 500

// runCapture executes the command, waits with the optional timeout ladder
// (SIGTERM, grace, SIGKILL) and classifies the outcome. Crash means the
// process died on SIGSEGV or reported the shell-style exit code 139.
func runCapture(ctx context.Context, spec commandSpec) (Capture, error) {
	cmd := exec.Command(spec.program, spec.args...)
	cmd.Dir = spec.dir
	cmd.Env = applyEnvOverlay(os.Environ(), spec.env)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	outBuf := &limitedBuffer{max: spec.captureMaxBytes}
	errBuf := &limitedBuffer{max: spec.captureMaxBytes}
	cmd.Stdout = outBuf
	cmd.Stderr = errBuf

	if err := cmd.Start(); err != nil {
		var ee *exec.Error
		if errors.As(err, &ee) {
			return Capture{ExitCode: -1}, &ExecError{Program: spec.program, Reason: "not found"}
		}
		return Capture{ExitCode: -1}, &ExecError{Program: spec.program, Reason: "start failed"}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	grace := spec.termGraceMs
	if grace <= 0 {
		grace = defaultTermGraceMs
	}

	var runErr error
	timedOut := false
	if spec.timeoutMs > 0 {
		timer := time.NewTimer(time.Duration(spec.timeoutMs) * time.Millisecond)
		defer timer.Stop()
		select {
		case runErr = <-done:
		case <-timer.C:
			timedOut = true
			runErr = terminate(cmd, done, grace)
		case <-ctx.Done():
			timedOut = true
			runErr = terminate(cmd, done, grace)
		}
	} else {
		select {
		case runErr = <-done:
		case <-ctx.Done():
			timedOut = true
			runErr = terminate(cmd, done, grace)
		}
	}

	res := Capture{
		Stdout:          outBuf.String(),
		Stderr:          errBuf.String(),
		StdoutTruncated: outBuf.truncated,
		StderrTruncated: errBuf.truncated,
		TimedOut:        timedOut,
	}
	if timedOut {
		res.ExitCode = -2
		return res, nil
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
				res.Signal = signalName(ws.Signal())
				if ws.Signal() == syscall.SIGSEGV {
					res.Crashed = true
				}
			}
			if res.ExitCode == crashExitCode {
				res.Crashed = true
				if res.Signal == "" {
					res.Signal = signalName(syscall.SIGSEGV)
				}
			}
			return res, nil
		}
		return res, &ExecError{Program: spec.program, Reason: "execution failed"}
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if res.ExitCode == crashExitCode {
		res.Crashed = true
		if res.Signal == "" {
			res.Signal = signalName(syscall.SIGSEGV)
		}
	}
	return res, nil
}

// crashExitCode is 128+SIGSEGV, reported when a shell wraps the crashed
// process instead of the signal reaching Wait directly.
const crashExitCode = 139

func signalName(sig syscall.Signal) string {
	if sig == syscall.SIGSEGV {
		return "SIGSEGV"
	}
	return fmt.Sprintf("signal %d", int(sig))
}

func terminate(cmd *exec.Cmd, done chan error, graceMs int) error {
	signalProcess(cmd, syscall.SIGTERM)
	grace := time.NewTimer(time.Duration(graceMs) * time.Millisecond)
	defer grace.Stop()
	select {
	case err := <-done:
		return err
	case <-grace.C:
		signalProcess(cmd, syscall.SIGKILL)
		return <-done
	}
}

func signalProcess(cmd *exec.Cmd, sig syscall.Signal) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid
	if pid > 0 {
		if err := syscall.Kill(-pid, sig); err == nil {
			return
		}
	}
	_ = cmd.Process.Signal(sig)
}

func applyEnvOverlay(base []string, overlay map[string]string) []string {
	if len(overlay) == 0 {
		return append([]string(nil), base...)
	}
	m := map[string]string{}
	for _, kv := range base {
		i := -1
		for j := 0; j < len(kv); j++ {
			if kv[j] == '=' {
				i = j
				break
			}
		}
		if i <= 0 {
			continue
		}
		m[kv[:i]] = kv[i+1:]
	}
	for k, v := range overlay {
		m[k] = v
	}
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	return out
}
