package labware

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
)

//go:embed definitions/*.yaml
var builtinDefinitions embed.FS

// maxSuggestionDistance bounds how different a suggested name may be.
const maxSuggestionDistance = 6

// Loader resolves labware definitions by name.
type Loader interface {
	Load(name string) (*Definition, error)
}

// Registry is a Loader backed by an in-memory set of definitions.
// It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// NewBuiltinRegistry returns a registry holding the built-in definitions.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	if err := r.AddFS(builtinDefinitions, "definitions"); err != nil {
		panic(fmt.Sprintf("builtin labware definitions: %v", err))
	}
	return r
}

// Register adds def after validating it. A later registration of the same
// name replaces the earlier one.
func (r *Registry) Register(def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[def.Name] = def
	return nil
}

// AddFS registers every .yaml/.yml file in dir of fsys.
func (r *Registry) AddFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read labware directory %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := path.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if err := r.addFile(fsys, path.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// AddDirectory registers every YAML definition in a directory on disk.
func (r *Registry) AddDirectory(dir string) error {
	return r.AddFS(os.DirFS(dir), ".")
}

func (r *Registry) addFile(fsys fs.FS, name string) error {
	f, err := fsys.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	def, err := ParseDefinition(f)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return r.Register(def)
}

// Load returns the definition registered under name. Unknown names fail with
// ErrUnknownDefinition and, when a close match exists, a suggestion.
func (r *Registry) Load(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if def, ok := r.defs[name]; ok {
		return def, nil
	}
	if s := r.suggest(name); s != "" {
		return nil, fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownDefinition, name, s)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDefinition, name)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.defs))
	for n := range r.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// suggest returns the closest registered name, or "" if nothing is close.
// Caller must hold r.mu.
func (r *Registry) suggest(name string) string {
	best, bestDist := "", maxSuggestionDistance+1
	lower := strings.ToLower(name)
	for candidate := range r.defs {
		d := levenshtein.ComputeDistance(lower, strings.ToLower(candidate))
		if d < bestDist || (d == bestDist && candidate < best) {
			best, bestDist = candidate, d
		}
	}
	if bestDist > maxSuggestionDistance {
		return ""
	}
	return best
}

var _ Loader = (*Registry)(nil)
