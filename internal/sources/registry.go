package sources

import (
	"fmt"
	"sort"
)

// Registry resolves transformers by source id or table name. It is built once at
// startup and never mutated afterwards, so lookups need no locking.
type Registry struct {
	byID    map[string]Transformer
	byTable map[string]Transformer
	ids     []string
}

// NewRegistry builds the registry of every built-in source for a deployment stage
func NewRegistry(stage string) *Registry {
	r, err := New(
		newNotes(stage),
		newProjects(stage),
		newContacts(stage),
		newConversations(stage),
	)
	if err != nil {
		// Built-in sources are fixed at compile time; a collision is a programming error.
		panic(err)
	}
	return r
}

// New builds a registry from explicit transformers
func New(transformers ...Transformer) (*Registry, error) {
	r := &Registry{
		byID:    make(map[string]Transformer, len(transformers)),
		byTable: make(map[string]Transformer, len(transformers)),
	}

	for _, t := range transformers {
		if t.ID() == "" || t.SourceName() == "" {
			return nil, fmt.Errorf("transformer must have an id and a source name")
		}
		if _, exists := r.byID[t.ID()]; exists {
			return nil, fmt.Errorf("source %s is already registered", t.ID())
		}
		if _, exists := r.byTable[t.SourceName()]; exists {
			return nil, fmt.Errorf("table %s is already registered", t.SourceName())
		}
		r.byID[t.ID()] = t
		r.byTable[t.SourceName()] = t
		r.ids = append(r.ids, t.ID())
	}
	sort.Strings(r.ids)

	return r, nil
}

// Get retrieves a transformer by source id
func (r *Registry) Get(id string) (Transformer, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// ByTable retrieves a transformer by source table name
func (r *Registry) ByTable(table string) (Transformer, bool) {
	t, ok := r.byTable[table]
	return t, ok
}

// Resolve accepts either a source id or a table name
func (r *Registry) Resolve(name string) (Transformer, bool) {
	if t, ok := r.byID[name]; ok {
		return t, true
	}
	return r.ByTable(name)
}

// List returns every transformer ordered by source id
func (r *Registry) List() []Transformer {
	out := make([]Transformer, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.byID[id])
	}
	return out
}

// Count returns the number of registered sources
func (r *Registry) Count() int {
	return len(r.ids)
}
