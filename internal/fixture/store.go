package fixture

import (
	"fmt"
	"sort"
)

// Store is the in-memory fixture collection. It is an explicit object:
// every operation that reads or mutates fixtures receives one, nothing is
// ambient.
type Store struct {
	cases map[string]*Case
	path  string
	dirty bool
}

// NewStore returns an empty store bound to no file.
func NewStore() *Store {
	return &Store{cases: map[string]*Case{}}
}

// Get returns the case for an exact path key.
func (s *Store) Get(path string) (*Case, bool) {
	c, ok := s.cases[path]
	return c, ok
}

// Put inserts or replaces the case for a path and marks the store dirty.
func (s *Store) Put(path string, c *Case) {
	s.cases[path] = c
	s.dirty = true
}

// Delete removes a case if present.
func (s *Store) Delete(path string) {
	if _, ok := s.cases[path]; ok {
		delete(s.cases, path)
		s.dirty = true
	}
}

// Paths returns all case keys in sorted order.
func (s *Store) Paths() []string {
	out := make([]string, 0, len(s.cases))
	for p := range s.cases {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of cases.
func (s *Store) Len() int { return len(s.cases) }

// Path returns the file the store was last loaded from or saved to.
func (s *Store) Path() string { return s.path }

// Dirty reports unsaved mutations.
func (s *Store) Dirty() bool { return s.dirty }

// MarkStale flags the case when the source mtime is newer than the capture
// time. Approval is left untouched. Returns whether the case is stale.
func (s *Store) MarkStale(path string, sourceMtime float64) bool {
	c, ok := s.cases[path]
	if !ok {
		return false
	}
	if sourceMtime > c.Time {
		if !c.Stale {
			c.Stale = true
			s.dirty = true
		}
	}
	return c.Stale
}

// Approve sets the human-review flag on a case.
func (s *Store) Approve(path string) error {
	c, ok := s.cases[path]
	if !ok {
		return &NotFoundError{Arg: path}
	}
	if !c.Checked {
		c.Checked = true
		s.dirty = true
	}
	return nil
}

// Unapprove clears the human-review flag on a case.
func (s *Store) Unapprove(path string) error {
	c, ok := s.cases[path]
	if !ok {
		return &NotFoundError{Arg: path}
	}
	if c.Checked {
		c.Checked = false
		s.dirty = true
	}
	return nil
}

// NotFoundError reports a path that matched no fixture key.
type NotFoundError struct {
	Arg string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no fixture matches %q", e.Arg)
}

// AmbiguousError reports a suffix that matched several fixture keys.
type AmbiguousError struct {
	Arg        string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%q matches %d fixtures: %v", e.Arg, len(e.Candidates), e.Candidates)
}
