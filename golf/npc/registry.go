package npc

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

var (
	ErrNoProfile   = errors.New("no such cpu profile")
	ErrProfileBusy = errors.New("cpu profile already in use")
	ErrNoneFree    = errors.New("no free cpu profile")
)

// Registry hands out CPU profiles as exclusive tokens. A profile acquired
// by one room stays unavailable everywhere until released.
type Registry struct {
	mu       sync.Mutex
	order    []string
	profiles map[string]Profile
	held     map[string]bool
}

func NewRegistry(profiles []Profile) *Registry {
	r := &Registry{
		profiles: make(map[string]Profile, len(profiles)),
		held:     map[string]bool{},
	}
	for _, p := range profiles {
		if _, dup := r.profiles[p.ID]; dup {
			continue
		}
		r.order = append(r.order, p.ID)
		r.profiles[p.ID] = p
	}
	return r
}

// LoadFromJSON replaces the roster. Held tokens are preserved for ids
// that survive the reload.
func (r *Registry) LoadFromJSON(data []byte) error {
	var profiles []Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return fmt.Errorf("parse cpu profiles: %w", err)
	}
	if len(profiles) == 0 {
		return errors.New("cpu profile file is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = r.order[:0]
	r.profiles = make(map[string]Profile, len(profiles))
	for _, p := range profiles {
		if _, dup := r.profiles[p.ID]; dup {
			continue
		}
		r.order = append(r.order, p.ID)
		r.profiles[p.ID] = p
	}
	for id := range r.held {
		if _, ok := r.profiles[id]; !ok {
			delete(r.held, id)
		}
	}
	return nil
}

func (r *Registry) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read cpu profiles: %w", err)
	}
	return r.LoadFromJSON(data)
}

// Acquire claims a profile token. An empty id claims any free profile in
// roster order.
func (r *Registry) Acquire(id string) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == "" {
		for _, candidate := range r.order {
			if !r.held[candidate] {
				r.held[candidate] = true
				return r.profiles[candidate], nil
			}
		}
		return Profile{}, ErrNoneFree
	}
	p, ok := r.profiles[id]
	if !ok {
		return Profile{}, ErrNoProfile
	}
	if r.held[id] {
		return Profile{}, ErrProfileBusy
	}
	r.held[id] = true
	return p, nil
}

// Release returns a token. Releasing an unheld id is a no-op.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.held, id)
}

// Get looks up a profile by id regardless of hold state.
func (r *Registry) Get(id string) (Profile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	return p, ok
}

// All lists the roster in order.
func (r *Registry) All() []Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Profile, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.profiles[id])
	}
	return out
}

// Available lists the profiles not currently held.
func (r *Registry) Available() []Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Profile
	for _, id := range r.order {
		if !r.held[id] {
			out = append(out, r.profiles[id])
		}
	}
	return out
}
