package stage

import (
	"context"
	"testing"
)

func testLimits() sandboxLimits {
	return sandboxLimits{
		timeoutMs:        2000,
		instructionLimit: 1000000,
		memoryLimitBytes: 8388608,
	}
}

func TestLuaSandbox_Timeout(t *testing.T) {
	lim := testLimits()
	lim.timeoutMs = 10
	lim.instructionLimit = 100000000
	_, violation, err := runLuaSandboxed("normalize-output", "a.alan", nil, "while true do end", lim)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if violation != sandboxTimeoutViolation {
		t.Fatalf("expected timeout violation, got %q", violation)
	}
}

func TestLuaSandbox_InstructionLimit(t *testing.T) {
	lim := testLimits()
	lim.instructionLimit = 10
	_, violation, err := runLuaSandboxed("normalize-output", "a.alan", nil, "while true do end", lim)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if violation != sandboxInstructionViolation {
		t.Fatalf("expected instruction violation, got %q", violation)
	}
}

func TestLuaSandbox_MemoryLimit(t *testing.T) {
	lim := testLimits()
	lim.memoryLimitBytes = 64
	lim.instructionLimit = 100000000
	_, violation, err := runLuaSandboxed("normalize-output", "a.alan", nil, "return string.rep('a', 1024)", lim)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if violation != sandboxMemoryViolation {
		t.Fatalf("expected memory violation, got %q", violation)
	}
}

func TestLuaSandbox_DeterministicRandom(t *testing.T) {
	code := "return math.random(1, 1000000)"
	r1, _, err := runLuaSandboxed("normalize-output", "a.alan", nil, code, testLimits())
	if err != nil {
		t.Fatalf("run1: %v", err)
	}
	r2, _, err := runLuaSandboxed("normalize-output", "a.alan", nil, code, testLimits())
	if err != nil {
		t.Fatalf("run2: %v", err)
	}
	r3, _, err := runLuaSandboxed("normalize-output", "b.alan", nil, code, testLimits())
	if err != nil {
		t.Fatalf("run3: %v", err)
	}
	if r1 != r2 {
		t.Fatalf("expected deterministic random for same locator: %v vs %v", r1, r2)
	}
	if r1 == r3 {
		t.Fatalf("expected locator-specific random, both %v", r1)
	}
}

func TestLuaSandbox_GlobalsVisible(t *testing.T) {
	ret, violation, err := runLuaSandboxed("normalize-output", "a.alan", map[string]any{
		"stream": "stdout",
		"text":   "TOKEN IDENT x\n",
	}, `return stream .. ":" .. text`, testLimits())
	if err != nil || violation != "" {
		t.Fatalf("unexpected failure: %v %q", err, violation)
	}
	if ret != "stdout:TOKEN IDENT x\n" {
		t.Fatalf("unexpected return: %q", ret)
	}
}

func TestNormalizeOutput_RewritesStreams(t *testing.T) {
	in := Envelope{
		Records: []Record{{
			Locator: "a.alan",
			Captures: map[string]*CaptureInfo{
				"testscanner": {Stdout: "addr 0xdeadbeef\n", Stderr: "warn 0xcafe\n"},
			},
		}},
		Meta: &Meta{
			Normalize: &NormalizeMeta{Inline: `return string.gsub(text, "0x%x+", "0xADDR")`},
		},
	}
	out, err := normalizeOutputRunner(context.Background(), in, Deps{})
	if err != nil {
		t.Fatalf("normalize-output: %v", err)
	}
	cap := out.Records[0].Captures["testscanner"]
	if cap.Stdout != "addr 0xADDR\n" {
		t.Fatalf("stdout not normalized: %q", cap.Stdout)
	}
	if cap.Stderr != "warn 0xADDR\n" {
		t.Fatalf("stderr not normalized: %q", cap.Stderr)
	}
}

func TestNormalizeOutput_NonStringReturnKeepsText(t *testing.T) {
	in := Envelope{
		Records: []Record{{
			Locator: "a.alan",
			Captures: map[string]*CaptureInfo{
				"testscanner": {Stdout: "keep me\n"},
			},
		}},
		Meta: &Meta{Normalize: &NormalizeMeta{Inline: "return 42"}},
	}
	out, err := normalizeOutputRunner(context.Background(), in, Deps{})
	if err != nil {
		t.Fatalf("normalize-output: %v", err)
	}
	if got := out.Records[0].Captures["testscanner"].Stdout; got != "keep me\n" {
		t.Fatalf("stdout rewritten unexpectedly: %q", got)
	}
}

func TestNormalizeOutput_ViolationKeepGoing(t *testing.T) {
	in := Envelope{
		Records: []Record{{
			Locator: "a.alan",
			Captures: map[string]*CaptureInfo{
				"testscanner": {Stdout: "x"},
			},
		}},
		Meta: &Meta{
			Normalize: &NormalizeMeta{Inline: "while true do end"},
			Errors:    &ErrorsMeta{Mode: "keep-going", EmbedErrors: true},
		},
	}
	out, err := normalizeOutputRunner(context.Background(), in, Deps{})
	if err != nil {
		t.Fatalf("unexpected fatal: %v", err)
	}
	rec := out.Records[0]
	if rec.Error == nil || rec.Error.Message != sandboxInstructionViolation {
		t.Fatalf("expected embedded violation, got %+v", rec.Error)
	}
	if len(out.Errors) != 1 || out.Errors[0].Stage != normalizeOutputStage {
		t.Fatalf("expected envelope error, got %+v", out.Errors)
	}
}

func TestNormalizeOutput_ViolationFailFast(t *testing.T) {
	in := Envelope{
		Records: []Record{{
			Locator: "a.alan",
			Captures: map[string]*CaptureInfo{
				"testscanner": {Stdout: "x"},
			},
		}},
		Meta: &Meta{
			Normalize: &NormalizeMeta{Inline: "while true do end"},
			Errors:    &ErrorsMeta{Mode: "fail-fast", EmbedErrors: true},
		},
	}
	_, err := normalizeOutputRunner(context.Background(), in, Deps{})
	if err == nil {
		t.Fatalf("expected fail-fast error")
	}
}

func TestNormalizeOutput_IgnoresSkippedCaptures(t *testing.T) {
	in := Envelope{
		Records: []Record{{
			Locator: "a.alan",
			Captures: map[string]*CaptureInfo{
				"testscanner": {Skipped: "build-failed"},
			},
		}},
		Meta: &Meta{Normalize: &NormalizeMeta{Inline: `return "rewritten"`}},
	}
	out, err := normalizeOutputRunner(context.Background(), in, Deps{})
	if err != nil {
		t.Fatalf("normalize-output: %v", err)
	}
	if got := out.Records[0].Captures["testscanner"].Stdout; got != "" {
		t.Fatalf("skipped capture touched: %q", got)
	}
}
