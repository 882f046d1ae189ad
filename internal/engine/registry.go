// internal/engine/registry.go
package engine

import "sync"

// Registry holds the running game instances, keyed by variant slug. The
// lobby runs several variants side by side (wingo, k3, aviator); each one
// gets its own clock and ledger.
type Registry struct {
	mu    sync.Mutex
	games map[string]*Game
}

// NewRegistry returns an empty in-memory registry.
func NewRegistry() *Registry {
	return &Registry{games: make(map[string]*Game)}
}

func (r *Registry) Add(g *Game) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[g.Variant()] = g
}

func (r *Registry) Get(variant string) (*Game, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[variant]
	return g, ok
}

// All returns the registered instances in no particular order.
func (r *Registry) All() []*Game {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Game, 0, len(r.games))
	for _, g := range r.games {
		out = append(out, g)
	}
	return out
}
