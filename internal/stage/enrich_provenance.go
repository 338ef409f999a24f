package stage

import (
	"context"

	git "github.com/go-git/go-git/v5"
)

const enrichProvenanceStage = "enrich-provenance"

// enrich-provenance pins the compiler checkout's git position into the
// meta so recorded fixtures carry it. Best effort: a checkout that is not
// a git repository, or a repository without commits, yields no provenance
// and no error. Plenty of people test from tarballs.
func enrichProvenanceRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	root := determineRoot(in)
	out := in
	prov := readProvenance(root)
	if prov == nil {
		if deps.Logger != nil {
			deps.Logger.WithField("root", root).Debug("no git provenance for project root")
		}
		return out, nil
	}
	if out.Meta != nil {
		out.Meta.Provenance = prov
	}
	return out, nil
}

func readProvenance(root string) *ProvenanceMeta {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil
	}
	head, err := repo.Head()
	if err != nil {
		return nil
	}
	prov := &ProvenanceMeta{Commit: head.Hash().String()}
	if head.Name().IsBranch() {
		prov.Branch = head.Name().Short()
	}
	return prov
}

func init() { Register(enrichProvenanceStage, enrichProvenanceRunner) }
