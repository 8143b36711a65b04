package version

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed manifests/*.yaml
var manifestFS embed.FS

// Manifest lists the actions a script format version provides.
type Manifest struct {
	Version     string                `yaml:"version"`
	Description string                `yaml:"description"`
	Actions     map[string]ActionSpec `yaml:"actions"`
}

// ActionSpec describes one script action.
type ActionSpec struct {
	Description string `yaml:"description"`

	// Required names the step fields the action cannot run without.
	Required []string `yaml:"required"`
}

// Requires reports whether field is required.
func (a ActionSpec) Requires(field string) bool {
	for _, f := range a.Required {
		if f == field {
			return true
		}
	}
	return false
}

var (
	cacheMu sync.RWMutex
	cache   = make(map[string]*Manifest)
)

// Load loads the manifest for a version string (e.g. "1.0").
func Load(ver string) (*Manifest, error) {
	cacheMu.RLock()
	if m, ok := cache[ver]; ok {
		cacheMu.RUnlock()
		return m, nil
	}
	cacheMu.RUnlock()

	data, err := manifestFS.ReadFile("manifests/" + ver + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("script version %q not found: %w", ver, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %q: %w", ver, err)
	}

	cacheMu.Lock()
	cache[ver] = &m
	cacheMu.Unlock()

	return &m, nil
}

// LoadCurrent loads the manifest for Current.
func LoadCurrent() (*Manifest, error) {
	return Load(Current)
}

// Available returns the version strings of all embedded manifests.
func Available() ([]string, error) {
	entries, err := manifestFS.ReadDir("manifests")
	if err != nil {
		return nil, fmt.Errorf("reading manifests directory: %w", err)
	}

	var versions []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") {
			versions = append(versions, strings.TrimSuffix(name, ".yaml"))
		}
	}
	sort.Strings(versions)
	return versions, nil
}

// ActionNames returns every action name, sorted.
func (m *Manifest) ActionNames() []string {
	out := make([]string, 0, len(m.Actions))
	for name := range m.Actions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Action looks up an action by name.
func (m *Manifest) Action(name string) (ActionSpec, bool) {
	a, ok := m.Actions[name]
	return a, ok
}
