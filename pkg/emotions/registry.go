package emotions

import (
	"fmt"
	"sort"
	"sync"

	"github.com/teslashibe/go-affect/pkg/model"
)

// Registry holds one profile per emotion. Profiles are shared read-only by
// every model; the per-model state lives in Module.
type Registry struct {
	mu       sync.RWMutex
	profiles map[model.Emotion]*Profile
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{profiles: make(map[model.Emotion]*Profile)}
}

// DefaultRegistry returns a registry with every built-in profile loaded.
func DefaultRegistry() (*Registry, error) {
	r := NewRegistry()
	if err := r.LoadBuiltIn(); err != nil {
		return nil, err
	}
	return r, nil
}

// LoadBuiltIn loads all embedded profiles into the registry.
func (r *Registry) LoadBuiltIn() error {
	list, err := ListEmbedded()
	if err != nil {
		return err
	}
	for _, e := range list {
		p, err := LoadEmbedded(e)
		if err != nil {
			return fmt.Errorf("failed to load profile %q: %w", e, err)
		}
		r.Register(p)
	}
	return nil
}

// LoadCustomDir loads profiles from dir, replacing built-ins of the same emotion.
func (r *Registry) LoadCustomDir(dir string) error {
	profiles, err := LoadFromDirectory(dir)
	if err != nil {
		return err
	}
	for _, p := range profiles {
		r.Register(p)
	}
	return nil
}

// Register adds or replaces the profile for p.Emotion.
func (r *Registry) Register(p *Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.Emotion] = p
}

// Get retrieves the profile for e.
func (r *Registry) Get(e model.Emotion) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[e]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, e)
	}
	return p, nil
}

// List returns the registered emotions in canonical order.
func (r *Registry) List() []model.Emotion {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Emotion, 0, len(r.profiles))
	for e := range r.profiles {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Profiles returns every registered profile in canonical order.
func (r *Registry) Profiles() []*Profile {
	list := r.List()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Profile, 0, len(list))
	for _, e := range list {
		if p, ok := r.profiles[e]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Count returns the number of registered profiles.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}
