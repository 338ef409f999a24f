package stage

import (
	"context"
	"errors"
	"sort"
)

const normalizeOutputStage = "normalize-output"

// normalize-output rewrites captured streams through the configured Lua
// hook before comparison and recording. The script sees the globals
// locator, stage, stream and text and returns the replacement text; any
// other return value leaves the stream as captured. Scripts run in the
// sandbox, so a hook cannot stall the pipeline or blow up memory.
func normalizeOutputRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	if in.Meta == nil || in.Meta.Normalize == nil || in.Meta.Normalize.Inline == "" {
		return in, nil
	}
	code := wrapLuaExpression(in.Meta.Normalize.Inline)
	mode, embed := errorMode(in.Meta)
	return runSequentialRecordStage(in, normalizeOutputStage, mode, embed, func(r Record) (Record, *Error, error) {
		if len(r.Captures) == 0 {
			return r, nil, nil
		}
		stages := make([]string, 0, len(r.Captures))
		for name := range r.Captures {
			stages = append(stages, name)
		}
		sort.Strings(stages)
		for _, name := range stages {
			cap := r.Captures[name]
			if cap == nil || cap.Skipped != "" {
				continue
			}
			for _, stream := range []string{"stdout", "stderr"} {
				text := cap.Stdout
				if stream == "stderr" {
					text = cap.Stderr
				}
				ret, violation, err := runLuaSandboxed(normalizeOutputStage, r.Locator, map[string]any{
					"locator": r.Locator,
					"stage":   name,
					"stream":  stream,
					"text":    text,
				}, code, defaultSandboxLimits())
				if err != nil {
					return r, &Error{Stage: normalizeOutputStage, Locator: r.Locator, Message: err.Error()}, err
				}
				if violation != "" {
					if mode != "keep-going" {
						return r, &Error{Stage: normalizeOutputStage, Locator: r.Locator, Message: violation}, errors.New(violation)
					}
					rr, envE := recordFailure(r, normalizeOutputStage, violation, embed)
					return rr, envE, nil
				}
				if s, ok := ret.(string); ok {
					if stream == "stderr" {
						cap.Stderr = s
					} else {
						cap.Stdout = s
					}
				}
			}
		}
		return r, nil, nil
	})
}

func init() { Register(normalizeOutputStage, normalizeOutputRunner) }
