package command

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrDuplicateCommand = errors.New("command: duplicate name or alias")
	ErrInvalidCommand   = errors.New("command: invalid descriptor")
	ErrRegistrySealed   = errors.New("command: registry sealed")
)

// Registry maps command names and aliases to descriptors. Registration happens
// during startup; after Seal the registry is read-only.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]*Descriptor
	aliases map[string]string
	sealed  bool
}

func NewRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]*Descriptor),
		aliases: make(map[string]string),
	}
}

func (r *Registry) Register(desc Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrRegistrySealed
	}
	name := strings.ToLower(strings.TrimSpace(desc.Name))
	if name == "" || desc.Handler == nil {
		return fmt.Errorf("%w: %q", ErrInvalidCommand, desc.Name)
	}
	if r.takenLocked(name) {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, name)
	}

	aliases := make([]string, 0, len(desc.Aliases))
	seen := map[string]struct{}{name: {}}
	for _, alias := range desc.Aliases {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias == "" {
			continue
		}
		if _, dup := seen[alias]; dup || r.takenLocked(alias) {
			return fmt.Errorf("%w: alias %s of %s", ErrDuplicateCommand, alias, name)
		}
		seen[alias] = struct{}{}
		aliases = append(aliases, alias)
	}

	desc.Name = name
	desc.Aliases = aliases
	stored := desc
	r.byName[name] = &stored
	for _, alias := range aliases {
		r.aliases[alias] = name
	}
	return nil
}

// MustRegister panics on a registration error. Startup code uses it for the
// built-in command set.
func (r *Registry) MustRegister(descs ...Descriptor) {
	for _, desc := range descs {
		if err := r.Register(desc); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Resolve looks a command up by name first, then by alias.
func (r *Registry) Resolve(nameOrAlias string) (*Descriptor, bool) {
	key := strings.ToLower(strings.TrimSpace(nameOrAlias))
	r.mu.RLock()
	defer r.mu.RUnlock()

	if desc, ok := r.byName[key]; ok {
		return desc, true
	}
	if name, ok := r.aliases[key]; ok {
		return r.byName[name], true
	}
	return nil, false
}

func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.byName))
	for _, desc := range r.byName {
		out = append(out, *desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

func (r *Registry) takenLocked(key string) bool {
	if _, ok := r.byName[key]; ok {
		return true
	}
	_, ok := r.aliases[key]
	return ok
}
