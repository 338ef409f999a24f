package fixture

import (
	"os"
	"path/filepath"
)

// AuditReport summarizes fixture health. Nothing here mutates the store:
// orphans stay recorded, staleness stays advisory, and approval policy is
// left to a human.
type AuditReport struct {
	// Orphans are fixture keys whose source file no longer exists.
	Orphans []string
	// Stale are keys flagged stale, or whose source is newer than the
	// recorded capture time.
	Stale []string
	// Unapproved are keys that never received human review.
	Unapproved []string
}

// Clean reports whether the audit found nothing to act on.
func (a AuditReport) Clean() bool {
	return len(a.Orphans) == 0 && len(a.Stale) == 0 && len(a.Unapproved) == 0
}

// Audit inspects every case against the project root. Keys come back in
// sorted order.
func (s *Store) Audit(root string) AuditReport {
	var rep AuditReport
	for _, key := range s.Paths() {
		c, _ := s.Get(key)
		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(key)))
		switch {
		case err != nil:
			rep.Orphans = append(rep.Orphans, key)
		case c.Stale || float64(info.ModTime().UnixNano())/1e9 > c.Time:
			rep.Stale = append(rep.Stale, key)
		}
		if !c.Checked {
			rep.Unapproved = append(rep.Unapproved, key)
		}
	}
	return rep
}
