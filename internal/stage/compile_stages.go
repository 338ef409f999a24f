package stage

import (
	"context"
	"fmt"
)

const compileStagesStage = "compile-stages"

// compile-stages builds every requested stage target through the build
// program. Outcomes land in Meta.Builds; a failed build becomes an
// envelope error and execute-capture later skips that stage. In fail-fast
// mode a failed build aborts the run.
func compileStagesRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	if deps.Builder == nil {
		return Envelope{}, fmt.Errorf("%s: no builder", compileStagesStage)
	}
	mode, _ := errorMode(in.Meta)
	out := in
	var envErrs []Error
	for _, name := range requestedStages(in, deps) {
		st, ok := deps.Manifest.Get(name)
		if !ok {
			msg := fmt.Sprintf("stage %q not in manifest", name)
			if mode != "keep-going" {
				return Envelope{}, fmt.Errorf("%s: %s", compileStagesStage, msg)
			}
			envErrs = append(envErrs, Error{Stage: compileStagesStage, Message: msg})
			continue
		}
		res, err := deps.Builder.Build(ctx, st)
		if err != nil {
			msg := fmt.Sprintf("build %s: %v", st.Target, err)
			if mode != "keep-going" {
				return Envelope{}, fmt.Errorf("%s: %s", compileStagesStage, msg)
			}
			envErrs = append(envErrs, Error{Stage: compileStagesStage, Message: msg})
			appendBuildMeta(&out, BuildMeta{Stage: st.Name, Target: st.Target, Status: res.Status.String()})
			continue
		}
		appendBuildMeta(&out, BuildMeta{
			Stage:  res.Stage,
			Target: res.Target,
			Status: res.Status.String(),
			Stderr: res.Stderr,
			Cached: res.Cached,
		})
		if res.Status.String() == "failed" {
			msg := fmt.Sprintf("build %s failed", st.Target)
			if mode != "keep-going" {
				return Envelope{}, fmt.Errorf("%s: %s", compileStagesStage, msg)
			}
			envErrs = append(envErrs, Error{Stage: compileStagesStage, Message: msg})
		}
	}
	appendSanitizedErrors(&out, envErrs)
	return out, nil
}

func appendBuildMeta(out *Envelope, b BuildMeta) {
	if out.Meta == nil {
		out.Meta = &Meta{}
	}
	out.Meta.Builds = append(out.Meta.Builds, b)
}

// builtStage reports whether a stage built cleanly in this envelope.
func builtStage(meta *Meta, name string) bool {
	if meta == nil {
		return false
	}
	for _, b := range meta.Builds {
		if b.Stage == name {
			return b.Status != "failed"
		}
	}
	return false
}

func init() { Register(compileStagesStage, compileStagesRunner) }
