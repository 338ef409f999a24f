package fixture

import (
	"path/filepath"
	"sort"
	"strings"
)

// Resolve maps a user-supplied path fragment to a fixture key. An exact key
// wins even when it is also a suffix of other keys; otherwise the fragment
// must be the suffix of exactly one key. Zero and multiple matches return
// distinct errors and no comparison should proceed on either.
func (s *Store) Resolve(arg string) (string, error) {
	needle := filepath.ToSlash(strings.TrimPrefix(arg, "./"))
	if needle == "" {
		return "", &NotFoundError{Arg: arg}
	}
	if _, ok := s.cases[needle]; ok {
		return needle, nil
	}
	var matches []string
	for key := range s.cases {
		if strings.HasSuffix(key, needle) {
			matches = append(matches, key)
		}
	}
	switch len(matches) {
	case 0:
		return "", &NotFoundError{Arg: arg}
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", &AmbiguousError{Arg: arg, Candidates: matches}
	}
}
