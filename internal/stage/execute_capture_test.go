package stage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alanlang/touchstone/internal/toolchain"
)

func captureSetup(t *testing.T, binScript string) (Deps, string) {
	t.Helper()
	root := t.TempDir()
	writeFileAt(t, root, "tests/scan/a.alan", "let a = 1\n")
	if binScript != "" {
		writeScript(t, filepath.Join(root, "bin", "testscanner"), binScript)
	}
	return Deps{
		Logger:   testLogger(),
		Manifest: fakeManifest(),
		Invoker:  &toolchain.Invoker{BinDir: filepath.Join(root, "bin")},
	}, root
}

func captureEnvelope(root string) Envelope {
	return Envelope{
		Records: []Record{{
			Locator: "tests/scan/a.alan",
			Source:  &SourceInfo{SizeBytes: 10, Mtime: 1},
		}},
		Meta: &Meta{
			Project: &ProjectMeta{Root: root},
			Builds:  []BuildMeta{{Stage: "testscanner", Target: "testscanner", Status: "ok"}},
		},
	}
}

func TestExecuteCapture_CapturesStreams(t *testing.T) {
	deps, root := captureSetup(t, "#!/bin/sh\n"+
		"test -f \"$1\" || exit 9\n"+
		"printf 'TOKEN LET\\nTOKEN IDENT a\\n'\n"+
		"printf 'scanned 1 file\\n' >&2\n"+
		"exit 3\n")
	out, err := executeCaptureRunner(context.Background(), captureEnvelope(root), deps)
	if err != nil {
		t.Fatalf("execute-capture: %v", err)
	}
	cap := out.Records[0].Captures["testscanner"]
	if cap == nil {
		t.Fatalf("missing capture: %+v", out.Records[0].Captures)
	}
	if cap.Stdout != "TOKEN LET\nTOKEN IDENT a\n" {
		t.Fatalf("unexpected stdout: %q", cap.Stdout)
	}
	if cap.Stderr != "scanned 1 file\n" {
		t.Fatalf("unexpected stderr: %q", cap.Stderr)
	}
	if cap.ExitCode != 3 || cap.Crashed || cap.TimedOut {
		t.Fatalf("unexpected capture state: %+v", cap)
	}
}

func TestExecuteCapture_CrashIsACaptureState(t *testing.T) {
	deps, root := captureSetup(t, "#!/bin/sh\nkill -11 $$\n")
	out, err := executeCaptureRunner(context.Background(), captureEnvelope(root), deps)
	if err != nil {
		t.Fatalf("a crash must not abort the run: %v", err)
	}
	cap := out.Records[0].Captures["testscanner"]
	if cap == nil || !cap.Crashed {
		t.Fatalf("crash not reported: %+v", cap)
	}
	if cap.Signal != "SIGSEGV" {
		t.Fatalf("unexpected signal: %q", cap.Signal)
	}
	if out.Records[0].Error != nil || len(out.Errors) != 0 {
		t.Fatalf("crash is a capture state, not an error")
	}
}

func TestExecuteCapture_TimeoutReported(t *testing.T) {
	deps, root := captureSetup(t, "#!/bin/sh\nsleep 5\n")
	deps.Invoker.TimeoutMs = 100
	deps.Invoker.TermGraceMs = 50
	out, err := executeCaptureRunner(context.Background(), captureEnvelope(root), deps)
	if err != nil {
		t.Fatalf("a timeout must not abort the run: %v", err)
	}
	cap := out.Records[0].Captures["testscanner"]
	if cap == nil || !cap.TimedOut {
		t.Fatalf("timeout not reported: %+v", cap)
	}
	if cap.ExitCode != -2 {
		t.Fatalf("unexpected exit code: %d", cap.ExitCode)
	}
}

func TestExecuteCapture_SkipsUnbuiltStage(t *testing.T) {
	deps, root := captureSetup(t, "")
	env := captureEnvelope(root)
	env.Meta.Builds[0].Status = "failed"
	out, err := executeCaptureRunner(context.Background(), env, deps)
	if err != nil {
		t.Fatalf("execute-capture: %v", err)
	}
	cap := out.Records[0].Captures["testscanner"]
	if cap == nil || cap.Skipped != "build-failed" {
		t.Fatalf("expected build-failed skip, got %+v", cap)
	}
}

func TestExecuteCapture_MissingBinaryEmbedsError(t *testing.T) {
	deps, root := captureSetup(t, "")
	out, err := executeCaptureRunner(context.Background(), captureEnvelope(root), deps)
	if err != nil {
		t.Fatalf("keep-going must not abort: %v", err)
	}
	rec := out.Records[0]
	if rec.Error == nil || !strings.Contains(rec.Error.Message, "not found") {
		t.Fatalf("expected embedded start failure, got %+v", rec.Error)
	}
	if len(out.Errors) != 1 {
		t.Fatalf("expected one envelope error, got %+v", out.Errors)
	}
}

func TestExecuteCapture_MissingBinaryFailFast(t *testing.T) {
	deps, root := captureSetup(t, "")
	env := captureEnvelope(root)
	env.Meta.Errors = &ErrorsMeta{Mode: "fail-fast"}
	if _, err := executeCaptureRunner(context.Background(), env, deps); err == nil {
		t.Fatalf("fail-fast start failure should abort the run")
	}
}

func TestExecuteCapture_SkipsMissingSourceRecords(t *testing.T) {
	deps, root := captureSetup(t, "#!/bin/sh\nexit 0\n")
	env := captureEnvelope(root)
	env.Records[0].Source = &SourceInfo{Missing: true}
	out, err := executeCaptureRunner(context.Background(), env, deps)
	if err != nil {
		t.Fatalf("execute-capture: %v", err)
	}
	if out.Records[0].Captures != nil {
		t.Fatalf("missing source must not be invoked: %+v", out.Records[0].Captures)
	}
}

func TestExecuteCapture_TruncatesLongStreams(t *testing.T) {
	deps, root := captureSetup(t, "#!/bin/sh\nprintf 'TOKEN INT 1234567890\\n'\n")
	deps.Invoker.CaptureMaxBytes = 8
	out, err := executeCaptureRunner(context.Background(), captureEnvelope(root), deps)
	if err != nil {
		t.Fatalf("execute-capture: %v", err)
	}
	cap := out.Records[0].Captures["testscanner"]
	if cap.Stdout != "TOKEN IN" || !cap.StdoutTruncated {
		t.Fatalf("truncation not applied: %+v", cap)
	}
}
