package stage

import (
	"context"
	"sort"

	"github.com/alanlang/touchstone/internal/compare"
	"github.com/alanlang/touchstone/internal/fixture"
)

const compareFixturesStage = "compare-fixtures"

// compare-fixtures judges fresh captures against stored results, stream
// by stream. Crashed and timed-out captures get no verdict: they are
// reported in their own right, never as a pass or fail. A capture without
// a stored baseline also gets no verdict; the record's fixture annotation
// lets reporting call it unrecorded. Fixtures whose source file vanished
// are collected as orphans.
func compareFixturesRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	out := in
	var orphans []string
	for i, r := range in.Records {
		if r.Error != nil {
			continue
		}
		if r.Fixture != nil && r.Fixture.Present && r.Source != nil && r.Source.Missing {
			orphans = append(orphans, r.Locator)
			continue
		}
		if len(r.Captures) == 0 {
			continue
		}
		verdicts := map[string]*compare.Verdict{}
		for _, name := range sortedCaptureStages(r.Captures) {
			cap := r.Captures[name]
			if cap == nil || cap.Skipped != "" || cap.Crashed || cap.TimedOut {
				continue
			}
			stored := storedResult(deps, r.Locator, name)
			if stored == nil {
				continue
			}
			v := compare.Streams(stored.Stdout, stored.Stderr, cap.Stdout, cap.Stderr)
			verdicts[name] = &v
		}
		if len(verdicts) > 0 {
			rr := r
			rr.Verdicts = verdicts
			out.Records[i] = rr
		}
	}
	if len(orphans) > 0 && out.Meta != nil {
		sort.Strings(orphans)
		out.Meta.Orphans = orphans
	}
	return out, nil
}

func sortedCaptureStages(caps map[string]*CaptureInfo) []string {
	names := make([]string, 0, len(caps))
	for name := range caps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func storedResult(deps Deps, locator, stageName string) *fixture.Result {
	if deps.Store == nil {
		return nil
	}
	c, ok := deps.Store.Get(locator)
	if !ok {
		return nil
	}
	return c.Result(stageName)
}

func init() { Register(compareFixturesStage, compareFixturesRunner) }
