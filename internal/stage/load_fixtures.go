package stage

import (
	"context"
	"fmt"
	"sort"
)

const loadFixturesStage = "load-fixtures"

// load-fixtures reads the fixture file into the store and annotates every
// record with its stored case. An envelope with no records is seeded with
// one record per fixture key, sorted, so run-all flows start here.
func loadFixturesRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	path := ""
	if in.Meta != nil && in.Meta.Fixtures != nil {
		path = in.Meta.Fixtures.Path
	}
	if deps.Store == nil {
		return Envelope{}, fmt.Errorf("%s: no fixture store", loadFixturesStage)
	}
	if err := deps.Store.Load(path); err != nil {
		return Envelope{}, fmt.Errorf("%s: %v", loadFixturesStage, err)
	}

	out := in
	if len(out.Records) == 0 {
		keys := deps.Store.Paths()
		out.Records = make([]Record, 0, len(keys))
		for _, key := range keys {
			out.Records = append(out.Records, Record{Locator: key})
		}
	}
	for i, r := range out.Records {
		if r.Error != nil {
			continue
		}
		out.Records[i].Fixture = fixtureInfoFor(deps, r.Locator)
	}
	return out, nil
}

func fixtureInfoFor(deps Deps, locator string) *FixtureInfo {
	c, ok := deps.Store.Get(locator)
	if !ok {
		return &FixtureInfo{Present: false}
	}
	stages := c.Stages()
	sort.Strings(stages)
	return &FixtureInfo{
		Present: true,
		Checked: c.Checked,
		Stale:   c.Stale,
		Stages:  stages,
	}
}

func init() { Register(loadFixturesStage, loadFixturesRunner) }
