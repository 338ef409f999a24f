package fixture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Marshal returns canonical fixture-file bytes: tab-indented JSON, sorted
// keys, exactly one trailing newline.
func Marshal(cases map[string]*Case) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "\t")
	if err := enc.Encode(cases); err != nil {
		return nil, err
	}
	out := bytes.TrimRight(buf.Bytes(), "\n")
	out = append(out, '\n')
	return out, nil
}

// MarshalBytes returns the canonical encoding of the store's cases.
func (s *Store) MarshalBytes() ([]byte, error) {
	return Marshal(s.cases)
}

// Save writes canonical fixture content to path, creating parent
// directories. An empty path falls back to the path the store was loaded
// from. The save target becomes the store's bound path.
func (s *Store) Save(path string) error {
	if path == "" {
		path = s.path
	}
	if path == "" {
		return fmt.Errorf("no fixture path to save to")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	b, err := Marshal(s.cases)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return err
	}
	s.path = path
	s.dirty = false
	return nil
}
