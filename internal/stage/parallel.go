package stage

import "sort"

// getWorkers returns the configured worker count. The default is one:
// stage binaries run strictly in sequence unless the user opts in.
func getWorkers(meta *Meta) int {
	n := 1
	if meta != nil && meta.Run != nil && meta.Run.Workers > 0 {
		n = meta.Run.Workers
	}
	return n
}

// SortEnvelopeErrors sorts errors by (stage, locator, message) deterministically.
func SortEnvelopeErrors(env *Envelope) {
	if env == nil || len(env.Errors) == 0 {
		return
	}
	sort.Slice(env.Errors, func(i, j int) bool {
		ei, ej := env.Errors[i], env.Errors[j]
		if ei.Stage != ej.Stage {
			return ei.Stage < ej.Stage
		}
		if ei.Locator != ej.Locator {
			return ei.Locator < ej.Locator
		}
		return ei.Message < ej.Message
	})
}

func appendSanitizedErrors(out *Envelope, envErrs []Error) {
	if len(envErrs) == 0 {
		return
	}
	for _, e := range envErrs {
		out.Errors = append(out.Errors, sanitizedError(e))
	}
	SortEnvelopeErrors(out)
}
