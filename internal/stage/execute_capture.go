package stage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/alanlang/touchstone/internal/manifest"
	"github.com/alanlang/touchstone/internal/toolchain"
)

const executeCaptureStage = "execute-capture"

// execute-capture invokes each built stage binary on each sample source
// and stores the raw capture per stage. Crashes and timeouts are capture
// states, not errors; an error here means a binary could not be started
// at all. Records run in parallel when workers permit, stages within a
// record in manifest order.
func executeCaptureRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	if deps.Invoker == nil {
		return Envelope{}, fmt.Errorf("%s: no invoker", executeCaptureStage)
	}
	root := determineRoot(in)
	mode, embed := errorMode(in.Meta)
	stages := resolveStages(in, deps)
	workers := getWorkers(in.Meta)

	out := in
	results := runIndexedParallel(len(in.Records), workers, func(i int) recordParallelRes {
		r := in.Records[i]
		if r.Error != nil || (r.Source != nil && r.Source.Missing) {
			return recordParallelRes{idx: i, rec: r}
		}
		rec, envE, err := captureRecord(ctx, r, root, stages, in.Meta, deps)
		if err != nil {
			if mode == "keep-going" {
				rr := r
				if embed {
					rr.Error = &RecError{Stage: executeCaptureStage, Message: envE.Message}
				}
				return recordParallelRes{idx: i, rec: rr, envE: envE}
			}
			return recordParallelRes{idx: i, rec: r, envE: envE,
				fatal: fmt.Errorf("%s: %s: %s", executeCaptureStage, r.Locator, envE.Message)}
		}
		return recordParallelRes{idx: i, rec: rec, envE: envE}
	})
	return mergeRecordParallelResults(out, results)
}

// captureRecord runs every stage binary against one source file.
func captureRecord(ctx context.Context, r Record, root string, stages []manifest.Stage, meta *Meta, deps Deps) (Record, *Error, error) {
	source := filepath.Join(root, filepath.FromSlash(r.Locator))
	caps := map[string]*CaptureInfo{}
	for _, st := range stages {
		if !builtStage(meta, st.Name) {
			caps[st.Name] = &CaptureInfo{Skipped: "build-failed"}
			continue
		}
		cap, err := deps.Invoker.Invoke(ctx, st.Bin, source)
		if err != nil {
			msg := invokeErrorMessage(st.Bin, err)
			return r, &Error{Stage: executeCaptureStage, Locator: r.Locator, Message: msg}, err
		}
		caps[st.Name] = &CaptureInfo{
			Stdout:          cap.Stdout,
			Stderr:          cap.Stderr,
			ExitCode:        cap.ExitCode,
			Signal:          cap.Signal,
			Crashed:         cap.Crashed,
			TimedOut:        cap.TimedOut,
			StdoutTruncated: cap.StdoutTruncated,
			StderrTruncated: cap.StderrTruncated,
		}
	}
	r.Captures = caps
	return r, nil, nil
}

func invokeErrorMessage(bin string, err error) string {
	var execErr *toolchain.ExecError
	if errors.As(err, &execErr) {
		return execErr.Error()
	}
	return fmt.Sprintf("invoke %s: %v", bin, err)
}

// resolveStages returns the manifest entries for the requested stage
// names, dropping names the manifest does not declare.
func resolveStages(in Envelope, deps Deps) []manifest.Stage {
	var out []manifest.Stage
	for _, name := range requestedStages(in, deps) {
		if st, ok := deps.Manifest.Get(name); ok {
			out = append(out, st)
		}
	}
	return out
}

func init() { Register(executeCaptureStage, executeCaptureRunner) }
