package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stages.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoad_MissingFileIsDefault(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(m.Stages) != 1 || m.Stages[0].Name != DefaultStageName {
		t.Fatalf("default manifest wrong: %+v", m)
	}
	if m.Stages[0].Bin != DefaultStageName || m.Stages[0].Target != DefaultStageName {
		t.Fatalf("default stage not self-named: %+v", m.Stages[0])
	}
}

func TestLoad_DefaultsPerEntry(t *testing.T) {
	path := writeManifest(t, `stages:
  - name: testscanner
    description: scanner token stream
  - name: testparser
    target: parser
    bin: testparser-bin
`)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	scanner, ok := m.Get("testscanner")
	if !ok || scanner.Target != "testscanner" || scanner.Bin != "testscanner" {
		t.Fatalf("name-defaulted stage wrong: %+v", scanner)
	}
	parser, ok := m.Get("testparser")
	if !ok || parser.Target != "parser" || parser.Bin != "testparser-bin" {
		t.Fatalf("explicit stage wrong: %+v", parser)
	}
	if got := m.Names(); len(got) != 2 || got[0] != "testscanner" || got[1] != "testparser" {
		t.Fatalf("names order wrong: %v", got)
	}
}

func TestLoad_RejectsBadEntries(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantSub string
	}{
		{"unnamed", "stages:\n  - target: x\n", "stage 1 has no name"},
		{"duplicate", "stages:\n  - name: a\n  - name: a\n", `duplicate stage "a"`},
		{"empty", "stages: []\n", "no stages declared"},
		{"garbage", "stages: {not a list\n", "invalid manifest"},
	}
	for _, tc := range cases {
		_, err := Load(writeManifest(t, tc.content))
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.wantSub) {
			t.Fatalf("%s: error %q does not mention %q", tc.name, err, tc.wantSub)
		}
	}
}
