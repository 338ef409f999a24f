package stage

import (
	"context"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func TestEnrichProvenance_NoRepositoryIsSilent(t *testing.T) {
	root := t.TempDir()
	in := Envelope{Meta: &Meta{Project: &ProjectMeta{Root: root}}}
	out, err := enrichProvenanceRunner(context.Background(), in, Deps{Logger: testLogger()})
	if err != nil {
		t.Fatalf("missing repository must not fail the run: %v", err)
	}
	if out.Meta.Provenance != nil {
		t.Fatalf("unexpected provenance: %+v", out.Meta.Provenance)
	}
}

func TestEnrichProvenance_ReadsHeadCommitAndBranch(t *testing.T) {
	root := t.TempDir()
	writeFileAt(t, root, "tests/scan/a.alan", "let a = 1\n")

	repo, err := git.PlainInit(root, false)
	if err != nil {
		t.Fatalf("init repository: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	if _, err := wt.Add("tests/scan/a.alan"); err != nil {
		t.Fatalf("add: %v", err)
	}
	hash, err := wt.Commit("add scanner sample", &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	in := Envelope{Meta: &Meta{Project: &ProjectMeta{Root: root}}}
	out, err := enrichProvenanceRunner(context.Background(), in, Deps{Logger: testLogger()})
	if err != nil {
		t.Fatalf("enrich-provenance: %v", err)
	}
	prov := out.Meta.Provenance
	if prov == nil {
		t.Fatalf("expected provenance from repository head")
	}
	if prov.Commit != hash.String() {
		t.Fatalf("unexpected commit: %q want %q", prov.Commit, hash.String())
	}
	if prov.Branch != "master" {
		t.Fatalf("unexpected branch: %q", prov.Branch)
	}
}

func TestEnrichProvenance_EmptyRepositoryIsSilent(t *testing.T) {
	root := t.TempDir()
	if _, err := git.PlainInit(root, false); err != nil {
		t.Fatalf("init repository: %v", err)
	}
	in := Envelope{Meta: &Meta{Project: &ProjectMeta{Root: root}}}
	out, err := enrichProvenanceRunner(context.Background(), in, Deps{Logger: testLogger()})
	if err != nil {
		t.Fatalf("empty repository must not fail the run: %v", err)
	}
	if out.Meta.Provenance != nil {
		t.Fatalf("unexpected provenance: %+v", out.Meta.Provenance)
	}
}
