package fixture

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load reads the fixture file into the store, replacing its contents. A
// missing file is not an error and yields an empty store bound to path.
func (s *Store) Load(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.cases = map[string]*Case{}
			s.path = path
			s.dirty = false
			return nil
		}
		return err
	}
	var cases map[string]*Case
	if err := json.Unmarshal(b, &cases); err != nil {
		return fmt.Errorf("invalid fixture file %s: %v", path, err)
	}
	if cases == nil {
		cases = map[string]*Case{}
	}
	for key, c := range cases {
		if c == nil {
			cases[key] = NewCase(0)
			continue
		}
		if c.Results == nil {
			c.Results = map[string]*Result{}
		}
	}
	s.cases = cases
	s.path = path
	s.dirty = false
	return nil
}
