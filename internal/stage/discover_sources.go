package stage

import (
	"context"
	"path/filepath"
	"sort"
)

const discoverSourcesStage = "discover-sources"

// discover-sources walks the tests directory for sample source files and
// merges them into the record set. Fixture-seeded records survive the
// merge, so a fixture whose source vanished still flows to later stages.
func discoverSourcesRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	root := determineRoot(in)
	testsDir := "tests"
	ext := ".alan"
	noGitignore := false
	if in.Meta != nil {
		if in.Meta.Project != nil && in.Meta.Project.TestsDir != "" {
			testsDir = in.Meta.Project.TestsDir
		}
		if in.Meta.Discovery != nil {
			if in.Meta.Discovery.Ext != "" {
				ext = in.Meta.Discovery.Ext
			}
			noGitignore = in.Meta.Discovery.NoGitignore
		}
	}
	mode, _ := errorMode(in.Meta)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Envelope{}, err
	}
	locators, envErrs, err := findSampleSources(absRoot, testsDir, ext, noGitignore, mode)
	if err != nil {
		return Envelope{}, err
	}

	out := in
	if len(envErrs) > 0 {
		out.Errors = append(out.Errors, envErrs...)
		SortEnvelopeErrors(&out)
	}
	out.Records = mergeLocators(in.Records, locators)
	return out, nil
}

// mergeLocators unions existing records with discovered locators, sorted
// by locator. Existing records keep their annotations.
func mergeLocators(records []Record, locators []string) []Record {
	byLocator := map[string]Record{}
	for _, r := range records {
		byLocator[r.Locator] = r
	}
	for _, l := range locators {
		if _, ok := byLocator[l]; !ok {
			byLocator[l] = Record{Locator: l}
		}
	}
	keys := make([]string, 0, len(byLocator))
	for k := range byLocator {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, byLocator[k])
	}
	return out
}

func init() { Register(discoverSourcesStage, discoverSourcesRunner) }
