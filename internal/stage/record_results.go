package stage

import (
	"context"
	"fmt"

	"github.com/alanlang/touchstone/internal/fixture"
)

const recordResultsStage = "record-results"

// record-results writes fresh captures into the fixture store, pending
// review. The approval gate is absolute: a checked case is never touched,
// not even for a stage it has no result for yet. Crashed and timed-out
// captures are never persisted. Recording refreshes the capture time and
// clears the stale flag, since the stored output now matches the source
// on disk.
func recordResultsRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	if deps.Store == nil {
		return Envelope{}, fmt.Errorf("%s: no fixture store", recordResultsStage)
	}
	prov := provenanceFor(in.Meta)
	out := in
	for i, r := range in.Records {
		if r.Error != nil {
			continue
		}
		rr := r
		rr.Recorded = map[string]string{}
		if r.Source != nil && r.Source.Missing {
			for _, name := range requestedStages(in, deps) {
				rr.Recorded[name] = SkippedMissingSource
			}
			out.Records[i] = rr
			continue
		}
		for _, name := range sortedCaptureStages(r.Captures) {
			cap := r.Captures[name]
			if cap == nil {
				continue
			}
			rr.Recorded[name] = recordOne(deps.Store, r, name, cap, prov)
		}
		out.Records[i] = rr
	}
	return out, nil
}

func recordOne(store *fixture.Store, r Record, stageName string, cap *CaptureInfo, prov *fixture.Provenance) string {
	switch {
	case cap.Skipped != "":
		return SkippedBuildFailed
	case cap.Crashed:
		return SkippedCrash
	case cap.TimedOut:
		return SkippedTimeout
	}

	c, existed := store.Get(r.Locator)
	if existed && c.Checked {
		return SkippedApproved
	}

	mtime := 0.0
	if r.Source != nil {
		mtime = r.Source.Mtime
	}
	if !existed {
		c = fixture.NewCase(mtime)
	}

	outcome := RecordedNew
	prior := c.Result(stageName)
	switch {
	case existed && prior == nil:
		outcome = RecordedNew
	case prior != nil && prior.Stdout == cap.Stdout && prior.Stderr == cap.Stderr:
		outcome = RecordedUnchanged
	case prior != nil:
		outcome = RecordedUpdated
	}

	if outcome != RecordedUnchanged {
		c.SetResult(stageName, &fixture.Result{
			Stdout: cap.Stdout,
			Stderr: cap.Stderr,
			Vouch:  fixture.VouchPending,
		})
	}
	c.Time = mtime
	c.Stale = false
	if prov != nil {
		c.Provenance = &fixture.Provenance{Commit: prov.Commit, Branch: prov.Branch}
	}
	store.Put(r.Locator, c)
	return outcome
}

func provenanceFor(meta *Meta) *fixture.Provenance {
	if meta == nil || meta.Provenance == nil {
		return nil
	}
	return &fixture.Provenance{
		Commit: meta.Provenance.Commit,
		Branch: meta.Provenance.Branch,
	}
}

func init() { Register(recordResultsStage, recordResultsRunner) }
