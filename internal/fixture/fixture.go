package fixture

// Package fixture holds the golden-output store: one Case per sample source
// file, keyed by the file's project-relative POSIX path, persisted as a
// single pretty JSON document.

// VouchPending marks a freshly captured result that still needs review.
const VouchPending = 1

// Result is one approved capture of a stage binary for a source file.
type Result struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Vouch  int    `json:"vouch"`
}

// Provenance pins the compiler checkout state a case was captured at.
type Provenance struct {
	Commit string `json:"commit,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// Case is the fixture entry for a single source file.
type Case struct {
	// Time is the source file mtime (unix seconds, fractional) at the
	// last capture.
	Time float64 `json:"time"`
	// Checked records human approval. Capture never overwrites a checked
	// case and never clears this flag.
	Checked bool `json:"checked"`
	// Stale means the source file changed after the last capture. Advisory
	// only: approval stays untouched until a human acts.
	Stale      bool               `json:"stale,omitempty"`
	Provenance *Provenance        `json:"provenance,omitempty"`
	Results    map[string]*Result `json:"results"`
}

// NewCase returns an empty unapproved case captured at the given mtime.
func NewCase(mtime float64) *Case {
	return &Case{Time: mtime, Results: map[string]*Result{}}
}

// Result returns the stored capture for a stage, or nil.
func (c *Case) Result(stage string) *Result {
	if c == nil || c.Results == nil {
		return nil
	}
	return c.Results[stage]
}

// SetResult stores a capture for a stage, replacing any previous one.
func (c *Case) SetResult(stage string, r *Result) {
	if c.Results == nil {
		c.Results = map[string]*Result{}
	}
	c.Results[stage] = r
}

// Stages returns the stage names with stored results, unsorted.
func (c *Case) Stages() []string {
	out := make([]string, 0, len(c.Results))
	for name := range c.Results {
		out = append(out, name)
	}
	return out
}
