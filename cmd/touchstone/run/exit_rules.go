package run

import "github.com/alanlang/touchstone/internal/stage"

const (
	exitCodeSuccess    = 0
	exitCodeExecErr    = 1
	exitCodeRegression = 2
)

type runExitError struct {
	code int
	msg  string
}

func (e runExitError) Error() string { return e.msg }
func (e runExitError) ExitCode() int { return e.code }

func hasExecutionErrors(env stage.Envelope) bool {
	if len(env.Errors) > 0 {
		return true
	}
	for _, r := range env.Records {
		if r.Error != nil {
			return true
		}
	}
	return false
}

// hasRegressions reports a fresh capture that no longer matches its
// fixture, or one that crashed or timed out. Missing fixtures are not
// regressions; they never got a verdict to fail.
func hasRegressions(env stage.Envelope) bool {
	for _, r := range env.Records {
		for _, v := range r.Verdicts {
			if v != nil && !v.Match {
				return true
			}
		}
		for _, c := range r.Captures {
			if c != nil && (c.Crashed || c.TimedOut) {
				return true
			}
		}
	}
	return false
}

// evaluateRunExit maps the envelope to the command exit code: execution
// errors beat regressions, a clean run exits zero.
func evaluateRunExit(env stage.Envelope) error {
	if hasExecutionErrors(env) {
		return runExitError{code: exitCodeExecErr, msg: "execution errors"}
	}
	if hasRegressions(env) {
		return runExitError{code: exitCodeRegression, msg: "regressions detected"}
	}
	return nil
}
