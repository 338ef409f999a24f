package compare

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Package compare judges fresh captures against stored golden text. Each
// stream is judged independently; the comparison is exact textual
// equality. Mismatches carry a compact character-level diff for display.

// StreamVerdict is the comparison outcome for a single stream.
type StreamVerdict struct {
	Stream string `json:"stream"`
	Match  bool   `json:"match"`
	Stored string `json:"stored,omitempty"`
	Fresh  string `json:"fresh,omitempty"`
	Diff   string `json:"diff,omitempty"`
}

// Verdict aggregates the per-stream outcomes for one stage run.
type Verdict struct {
	Match   bool            `json:"match"`
	Streams []StreamVerdict `json:"streams"`
}

// Streams compares stored stdout/stderr against fresh captures. Stored and
// fresh values are kept on mismatching streams so both can be shown.
func Streams(storedOut, storedErr, freshOut, freshErr string) Verdict {
	out := judge("stdout", storedOut, freshOut)
	errV := judge("stderr", storedErr, freshErr)
	return Verdict{
		Match:   out.Match && errV.Match,
		Streams: []StreamVerdict{out, errV},
	}
}

func judge(stream, stored, fresh string) StreamVerdict {
	if stored == fresh {
		return StreamVerdict{Stream: stream, Match: true}
	}
	return StreamVerdict{
		Stream: stream,
		Match:  false,
		Stored: stored,
		Fresh:  fresh,
		Diff:   Render(stored, fresh),
	}
}

// Render produces a compact single-string diff from stored to fresh text:
// deletions wrapped in [-...-], insertions in {+...+}, after semantic
// cleanup so edits align with token boundaries where possible.
func Render(stored, fresh string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(stored, fresh, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-")
			b.WriteString(d.Text)
			b.WriteString("-]")
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+")
			b.WriteString(d.Text)
			b.WriteString("+}")
		default:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}
