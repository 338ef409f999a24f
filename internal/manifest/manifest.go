package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Package manifest reads stages.yaml, the declaration of compiler stages
// the harness can build and run. A missing file yields the built-in
// default of a single scanner stage.

// Stage declares one compiler stage under test.
type Stage struct {
	// Name is the unique stage key used in fixtures and on the command line.
	Name string `yaml:"name"`
	// Target is the build target, defaulting to Name.
	Target string `yaml:"target"`
	// Bin is the binary under the project bin directory, defaulting to Name.
	Bin string `yaml:"bin"`
	// Description is free text shown in listings.
	Description string `yaml:"description"`
}

// Manifest is the parsed stage declaration file.
type Manifest struct {
	Stages []Stage `yaml:"stages"`
}

// DefaultStageName is the stage assumed when no manifest file exists.
const DefaultStageName = "testscanner"

// Default returns the built-in manifest: exactly the scanner stage.
func Default() Manifest {
	return Manifest{Stages: []Stage{{
		Name:        DefaultStageName,
		Target:      DefaultStageName,
		Bin:         DefaultStageName,
		Description: "scanner token stream",
	}}}
}

// Load parses the manifest at path. A missing file is not an error and
// yields Default(). Entries are validated and defaulted in order; errors
// name the offending entry.
func Load(path string) (Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Manifest{}, err
	}
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return Manifest{}, fmt.Errorf("invalid manifest %s: %v", path, err)
	}
	if len(m.Stages) == 0 {
		return Manifest{}, fmt.Errorf("invalid manifest %s: no stages declared", path)
	}
	seen := map[string]bool{}
	for i := range m.Stages {
		st := &m.Stages[i]
		if st.Name == "" {
			return Manifest{}, fmt.Errorf("invalid manifest %s: stage %d has no name", path, i+1)
		}
		if seen[st.Name] {
			return Manifest{}, fmt.Errorf("invalid manifest %s: duplicate stage %q", path, st.Name)
		}
		seen[st.Name] = true
		if st.Target == "" {
			st.Target = st.Name
		}
		if st.Bin == "" {
			st.Bin = st.Name
		}
	}
	return m, nil
}

// Get returns the stage with the given name.
func (m Manifest) Get(name string) (Stage, bool) {
	for _, st := range m.Stages {
		if st.Name == name {
			return st, true
		}
	}
	return Stage{}, false
}

// Names returns the declared stage names in manifest order.
func (m Manifest) Names() []string {
	out := make([]string, 0, len(m.Stages))
	for _, st := range m.Stages {
		out = append(out, st.Name)
	}
	return out
}
