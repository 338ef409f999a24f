package stage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alanlang/touchstone/internal/fixture"
)

func TestEnrichFileinfo_StatsSources(t *testing.T) {
	root := t.TempDir()
	writeFileAt(t, root, "tests/a.alan", "let a = 1\n")

	in := Envelope{
		Records: []Record{{Locator: "tests/a.alan"}},
		Meta:    &Meta{Project: &ProjectMeta{Root: root}},
	}
	out, err := enrichFileinfoRunner(context.Background(), in, Deps{})
	if err != nil {
		t.Fatalf("enrich-fileinfo: %v", err)
	}
	src := out.Records[0].Source
	if src == nil || src.Missing {
		t.Fatalf("source not stat'ed: %+v", src)
	}
	if src.SizeBytes != int64(len("let a = 1\n")) {
		t.Fatalf("unexpected size: %d", src.SizeBytes)
	}
	if src.Mtime <= 0 {
		t.Fatalf("unexpected mtime: %v", src.Mtime)
	}
}

func TestEnrichFileinfo_MissingSourceFlagged(t *testing.T) {
	root := t.TempDir()
	in := Envelope{
		Records: []Record{{Locator: "tests/gone.alan", Fixture: &FixtureInfo{Present: true}}},
		Meta:    &Meta{Project: &ProjectMeta{Root: root}},
	}
	out, err := enrichFileinfoRunner(context.Background(), in, Deps{Store: fixture.NewStore()})
	if err != nil {
		t.Fatalf("enrich-fileinfo: %v", err)
	}
	src := out.Records[0].Source
	if src == nil || !src.Missing {
		t.Fatalf("missing source not flagged: %+v", src)
	}
	if out.Records[0].Error != nil {
		t.Fatalf("missing source must not be a record error")
	}
}

func TestEnrichFileinfo_MarksStaleWithoutTouchingApproval(t *testing.T) {
	root := t.TempDir()
	writeFileAt(t, root, "tests/a.alan", "new content\n")
	p := filepath.Join(root, "tests", "a.alan")
	now := time.Now()
	if err := os.Chtimes(p, now, now); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	st := fixture.NewStore()
	c := fixture.NewCase(100) // captured long before the file's mtime
	c.Checked = true
	c.SetResult("testscanner", &fixture.Result{Stdout: "old\n"})
	st.Put("tests/a.alan", c)

	in := Envelope{
		Records: []Record{{
			Locator: "tests/a.alan",
			Fixture: &FixtureInfo{Present: true, Checked: true},
		}},
		Meta: &Meta{Project: &ProjectMeta{Root: root}},
	}
	out, err := enrichFileinfoRunner(context.Background(), in, Deps{Store: st})
	if err != nil {
		t.Fatalf("enrich-fileinfo: %v", err)
	}
	if !out.Records[0].Fixture.Stale {
		t.Fatalf("expected stale annotation")
	}
	stored, _ := st.Get("tests/a.alan")
	if !stored.Stale {
		t.Fatalf("expected stale flag in store")
	}
	if !stored.Checked {
		t.Fatalf("staleness must not clear approval")
	}
}

func TestEnrichFileinfo_FreshCaptureNotStale(t *testing.T) {
	root := t.TempDir()
	writeFileAt(t, root, "tests/a.alan", "same\n")
	info, err := os.Stat(filepath.Join(root, "tests", "a.alan"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	mtime := float64(info.ModTime().UnixNano()) / 1e9

	st := fixture.NewStore()
	st.Put("tests/a.alan", fixture.NewCase(mtime))

	in := Envelope{
		Records: []Record{{
			Locator: "tests/a.alan",
			Fixture: &FixtureInfo{Present: true},
		}},
		Meta: &Meta{Project: &ProjectMeta{Root: root}},
	}
	out, err := enrichFileinfoRunner(context.Background(), in, Deps{Store: st})
	if err != nil {
		t.Fatalf("enrich-fileinfo: %v", err)
	}
	if out.Records[0].Fixture.Stale {
		t.Fatalf("capture at current mtime must not be stale")
	}
}
