// Package spectate streams read-only game snapshots to websocket viewers.
package spectate

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomz197/ciphertower/internal/loop/server"
)

// Source is a game that can be watched.
type Source interface {
	Snapshot() *server.Snapshot
	Subscribe() (<-chan server.Event, func())
}

// Compile-time check that the engine can be watched.
var _ Source = (*server.Engine)(nil)

// Info describes a watchable game.
type Info struct {
	ID      uuid.UUID `json:"id"`
	Player  string    `json:"player"`
	Started time.Time `json:"started"`
}

type entry struct {
	info   Info
	source Source
}

// Registry tracks the games currently open for spectating.
type Registry struct {
	mu    sync.RWMutex
	games map[uuid.UUID]entry
	now   func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{games: make(map[uuid.UUID]entry), now: time.Now}
}

// Register adds src under a fresh random ID and returns it.
func (r *Registry) Register(player string, src Source) uuid.UUID {
	id := uuid.New()
	r.mu.Lock()
	r.games[id] = entry{info: Info{ID: id, Player: player, Started: r.now()}, source: src}
	r.mu.Unlock()
	return id
}

// Unregister removes a game. Viewers already attached keep streaming until
// the game closes its event channel.
func (r *Registry) Unregister(id uuid.UUID) {
	r.mu.Lock()
	delete(r.games, id)
	r.mu.Unlock()
}

// Lookup returns the game registered under id.
func (r *Registry) Lookup(id uuid.UUID) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.games[id]
	return e.source, ok
}

// List returns every registered game, oldest first.
func (r *Registry) List() []Info {
	r.mu.RLock()
	out := make([]Info, 0, len(r.games))
	for _, e := range r.games {
		out = append(out, e.info)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Started.Equal(out[j].Started) {
			return out[i].Started.Before(out[j].Started)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// Len returns the number of registered games.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}
