package stage

import (
	"context"
	"sort"
	"strings"
)

const validateLocatorsStage = "validate-locators"

// Locators name sample sources relative to the project root and later get
// joined onto it, so the policy is fixed: no absolute paths, no parent
// references, forward slashes only. The fixture file is hand-editable and
// a bad key must not let a run wander outside the checkout.
func violatesLocatorPolicy(loc string) (bool, string) {
	if loc == "" {
		return true, "empty locator"
	}
	if strings.HasPrefix(loc, "/") {
		return true, "absolute paths are not allowed"
	}
	for _, seg := range strings.Split(loc, "/") {
		if seg == ".." {
			return true, "parent references ('..') are not allowed"
		}
	}
	if strings.Contains(loc, "\\") {
		return true, "backslashes are not allowed"
	}
	return false, ""
}

func validateLocatorsRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	mode, embed := errorMode(in.Meta)
	workers := getWorkers(in.Meta)
	out := in
	results := runIndexedParallel(len(in.Records), workers, func(idx int) recordParallelRes {
		r := in.Records[idx]
		if r.Error != nil {
			return recordParallelRes{idx: idx, rec: r}
		}
		bad, msg := violatesLocatorPolicy(r.Locator)
		if !bad {
			return recordParallelRes{idx: idx, rec: r}
		}
		if mode == "keep-going" {
			rr, envE := recordFailure(r, validateLocatorsStage, msg, embed)
			return recordParallelRes{idx: idx, rec: rr, envE: envE}
		}
		return recordParallelRes{idx: idx, rec: r,
			fatal: &ErrInvalidLocator{msg: msg, locator: r.Locator}}
	})
	merged, err := mergeRecordParallelResults(out, results)
	if err != nil {
		return Envelope{}, err
	}
	sort.Slice(merged.Records, func(i, j int) bool {
		return merged.Records[i].Locator < merged.Records[j].Locator
	})
	return merged, nil
}

// ErrInvalidLocator reports a locator the policy rejects.
type ErrInvalidLocator struct {
	msg     string
	locator string
}

func (e *ErrInvalidLocator) Error() string {
	return "invalid locator: " + e.msg + " (" + e.locator + ")"
}

func init() { Register(validateLocatorsStage, validateLocatorsRunner) }
