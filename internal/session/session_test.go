package session

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/peterh/liner"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanlang/touchstone/internal/config"
	"github.com/alanlang/touchstone/internal/fixture"
	"github.com/alanlang/touchstone/internal/manifest"
)

// scriptPrompter feeds canned lines; "^C" simulates Ctrl-C and running
// out of lines reads as EOF.
type scriptPrompter struct {
	lines []string
}

func (p *scriptPrompter) Prompt(string) (string, error) {
	if len(p.lines) == 0 {
		return "", io.EOF
	}
	l := p.lines[0]
	p.lines = p.lines[1:]
	if l == "^C" {
		return "", liner.ErrPromptAborted
	}
	return l, nil
}

func (p *scriptPrompter) AppendHistory(string) {}
func (p *scriptPrompter) Close() error         { return nil }

const tokenizerBody = "#!/bin/sh\n" +
	"while IFS= read -r line; do printf 'TOKEN %s\\n' \"$line\"; done < \"$1\"\n"

func writeExec(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
}

func writeSample(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func newTestSession(t *testing.T, script ...string) (*Session, *bytes.Buffer) {
	t.Helper()
	root := t.TempDir()
	writeSample(t, root, "tests/scan/ints.alan", "let n = 42\n")
	writeSample(t, root, "tests/scan/strings.alan", "let s = \"hi\"\n")
	writeExec(t, filepath.Join(root, "make"), "#!/bin/sh\nexit 0\n")
	writeExec(t, filepath.Join(root, "bin", "testscanner"), tokenizerBody)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))

	cfg := config.Default()
	cfg.Project.Root = root
	cfg.Build.Program = filepath.Join(root, "make")

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	var buf bytes.Buffer
	s := New(cfg, manifest.Default(), logger, &buf)
	s.prompter = &scriptPrompter{lines: script}
	return s, &buf
}

func TestLoop_UnrecognizedCommandContinues(t *testing.T) {
	s, out := newTestSession(t, "frobnicate", "list", "5")
	require.NoError(t, s.Loop())
	assert.Contains(t, out.String(), `unrecognized command "frobnicate"`)
	assert.Contains(t, out.String(), "no fixtures loaded")
	assert.Contains(t, out.String(), "goodbye")
}

func TestLoop_NumericAliasLoadsWithDefaultPath(t *testing.T) {
	// "1" prompts for the fixture file; empty input takes the default,
	// and a missing file is an empty store, not an error.
	s, out := newTestSession(t, "1", "", "5")
	require.NoError(t, s.Loop())
	assert.Contains(t, out.String(), "loaded 0 cases")
	assert.NotContains(t, out.String(), "error:")
}

func TestLoop_GenerateRunSave(t *testing.T) {
	s, out := newTestSession(t,
		"gen tests/scan/ints.alan",
		"run ints.alan",
		"save",
		"",
	)
	require.NoError(t, s.Loop())

	text := out.String()
	assert.Contains(t, text, "captured tests/scan/ints.alan")
	assert.Contains(t, text, "TOKEN let n = 42")
	assert.Contains(t, text, "PASS")
	assert.NotContains(t, text, "FAIL")

	st := fixture.NewStore()
	require.NoError(t, st.Load(s.Config.FixturesPath()))
	c, ok := st.Get("tests/scan/ints.alan")
	require.True(t, ok)
	assert.Equal(t, "TOKEN let n = 42\n", c.Result("testscanner").Stdout)
	assert.Equal(t, fixture.VouchPending, c.Result("testscanner").Vouch)
	assert.False(t, c.Checked)
}

func TestLoop_ApprovedCaseIsNeverRecaptured(t *testing.T) {
	s, out := newTestSession(t,
		"gen tests/scan/ints.alan",
		"approve ints.alan",
		"gen tests/scan/ints.alan",
		"exit",
		"y",
	)
	require.NoError(t, s.Loop())
	assert.Contains(t, out.String(), "reviewed by a human")

	c, ok := s.Store.Get("tests/scan/ints.alan")
	require.True(t, ok)
	assert.True(t, c.Checked)
	assert.Equal(t, "TOKEN let n = 42\n", c.Result("testscanner").Stdout)
}

func TestLoop_MismatchPrintsBothValuesAndDiff(t *testing.T) {
	s, out := newTestSession(t)
	s.Store.Put("tests/scan/ints.alan", &fixture.Case{
		Time: 1,
		Results: map[string]*fixture.Result{
			"testscanner": {Stdout: "TOKEN let n = 41\n", Vouch: fixture.VouchPending},
		},
	})
	s.prompter = &scriptPrompter{lines: []string{"run ints.alan", "exit", "y"}}
	require.NoError(t, s.Loop())

	text := out.String()
	assert.Contains(t, text, "FAIL")
	assert.Contains(t, text, `stored: "TOKEN let n = 41\n"`)
	assert.Contains(t, text, `fresh:  "TOKEN let n = 42\n"`)
	assert.Contains(t, text, "diff:")
}

func TestLoop_AmbiguousSuffixRunsNothing(t *testing.T) {
	s, out := newTestSession(t, "run x.alan", "5")
	s.Store.Put("a/b/x.alan", &fixture.Case{Time: 1})
	s.Store.Put("c/x.alan", &fixture.Case{Time: 1})
	require.NoError(t, s.Loop())

	text := out.String()
	assert.Contains(t, text, "matches 2 fixtures")
	assert.NotContains(t, text, "PASS")
	assert.NotContains(t, text, "Test 1")
}

func TestLoop_MissingFixturePrintsRawOutput(t *testing.T) {
	// A stored case with no result for the stage: raw streams and exit
	// code, no verdict.
	s, out := newTestSession(t)
	s.Store.Put("tests/scan/ints.alan", &fixture.Case{Time: 1})
	s.prompter = &scriptPrompter{lines: []string{"run ints.alan", "exit", "y"}}
	require.NoError(t, s.Loop())

	text := out.String()
	assert.Contains(t, text, "no recorded output")
	assert.Contains(t, text, "TOKEN let n = 42")
	assert.Contains(t, text, "exit code 0")
	assert.NotContains(t, text, "PASS")
	assert.NotContains(t, text, "FAIL")
}

func TestLoop_CrashIsReportedAndDiscarded(t *testing.T) {
	s, out := newTestSession(t, "gen tests/scan/boom.alan", "5")
	writeSample(t, s.Config.Project.Root, "tests/scan/boom.alan", "crash me\n")
	writeExec(t, filepath.Join(s.Config.Project.Root, "bin", "testscanner"),
		"#!/bin/sh\nkill -11 $$\n")
	require.NoError(t, s.Loop())

	assert.Contains(t, out.String(), "CRASH")
	assert.Contains(t, out.String(), "not recorded")
	_, ok := s.Store.Get("tests/scan/boom.alan")
	assert.False(t, ok, "crashed capture must not enter the store")
}

func TestLoop_GenAllDiscoversEverything(t *testing.T) {
	s, out := newTestSession(t, "gen-all", "save", "")
	require.NoError(t, s.Loop())

	assert.Contains(t, out.String(), "store now holds 2 cases")
	st := fixture.NewStore()
	require.NoError(t, st.Load(s.Config.FixturesPath()))
	assert.Equal(t, []string{"tests/scan/ints.alan", "tests/scan/strings.alan"}, st.Paths())
}

func TestLoop_CtrlCAtNestedPromptReturnsToMenu(t *testing.T) {
	s, out := newTestSession(t, "gen", "^C", "list", "5")
	require.NoError(t, s.Loop())
	// The aborted gen must not have captured anything, and the loop must
	// have kept going.
	assert.NotContains(t, out.String(), "captured")
	assert.Contains(t, out.String(), "no fixtures loaded")
}

func TestLoop_ExitWarnsOnUnsavedChanges(t *testing.T) {
	s, out := newTestSession(t, "gen tests/scan/ints.alan", "exit", "y")
	require.NoError(t, s.Loop())
	assert.Contains(t, out.String(), "unsaved fixture changes were discarded")
}

func TestLoop_ExitDeclinedKeepsSessionAlive(t *testing.T) {
	s, out := newTestSession(t, "gen tests/scan/ints.alan", "exit", "n", "save", "")
	require.NoError(t, s.Loop())
	assert.Contains(t, out.String(), "saved 1 cases")
}

func TestLoop_StaleApprovedCaseWarns(t *testing.T) {
	s, out := newTestSession(t, "gen tests/scan/ints.alan", "approve ints.alan", "gen tests/scan/ints.alan", "5")
	// Pre-date the capture so the second gen sees a newer source.
	require.NoError(t, s.Loop())
	c, _ := s.Store.Get("tests/scan/ints.alan")
	c.Time -= 3600
	s.Store.Put("tests/scan/ints.alan", c)
	require.NoError(t, s.generate("tests/scan/ints.alan"))

	text := out.String()
	assert.Contains(t, text, "needs review")
	assert.Contains(t, text, "reviewed by a human")
	c2, _ := s.Store.Get("tests/scan/ints.alan")
	assert.True(t, c2.Stale)
	assert.True(t, c2.Checked, "staleness must not clear approval")
}

func TestNewCommand_Table(t *testing.T) {
	cases := []struct {
		in   string
		op   string
		args []string
	}{
		{"load", "load", nil},
		{"1", "load", nil},
		{"  RUN  x.alan ", "run", []string{"x.alan"}},
		{"3 x.alan", "run", []string{"x.alan"}},
		{"gen-all", "gen-all", nil},
		{"9", "", nil},
		{"bogus", "", nil},
		{"", "", nil},
	}
	for _, tc := range cases {
		got := newCommand(tc.in)
		if tc.op == "" {
			assert.Nil(t, got, "input %q", tc.in)
			continue
		}
		require.NotNil(t, got, "input %q", tc.in)
		assert.Equal(t, tc.op, got.op, "input %q", tc.in)
		if len(tc.args) > 0 {
			assert.Equal(t, tc.args, got.args)
		}
	}
}

func TestWriteFixtureTable(t *testing.T) {
	var buf bytes.Buffer
	st := fixture.NewStore()
	st.Put("tests/scan/ints.alan", &fixture.Case{
		Time:    1,
		Checked: true,
		Results: map[string]*fixture.Result{
			"testscanner": {Stdout: "x\n", Vouch: fixture.VouchPending},
		},
	})
	WriteFixtureTable(&buf, st)
	text := buf.String()
	for _, want := range []string{"tests/scan/ints.alan", "testscanner", "yes", "Pending"} {
		if !strings.Contains(text, want) {
			t.Fatalf("table missing %q:\n%s", want, text)
		}
	}
}
