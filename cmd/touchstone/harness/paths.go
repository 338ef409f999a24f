package harness

import (
	"fmt"
	"path/filepath"
	"strings"
)

// toLocator maps user path input to a project-relative POSIX locator.
func toLocator(root, arg string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	abs := arg
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(absRoot, arg)
	}
	rel, err := filepath.Rel(absRoot, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the project root", arg)
	}
	return filepath.ToSlash(rel), nil
}

func joinLocator(root, loc string) string {
	return filepath.Join(root, filepath.FromSlash(loc))
}
