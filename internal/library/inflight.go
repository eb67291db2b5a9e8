package library

import (
	"fmt"
	"sync"
)

// MutationState is the per-entity state of the mutation state machine.
type MutationState string

const (
	StateIdle     MutationState = "idle"
	StateMutating MutationState = "mutating"
)

func entityKey(kind Kind, id string) string {
	return string(kind) + "/" + id
}

// inflight tracks entities with a mutation in progress. Acquisition is
// all-or-nothing: if any key is held the caller gets ErrConflict and holds nothing.
type inflight struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newInflight() *inflight {
	return &inflight{held: make(map[string]struct{})}
}

func (g *inflight) acquire(keys ...string) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, k := range keys {
		if _, busy := g.held[k]; busy {
			return nil, fmt.Errorf("%w: %s already has a mutation in flight", ErrConflict, k)
		}
	}
	for _, k := range keys {
		g.held[k] = struct{}{}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			for _, k := range keys {
				delete(g.held, k)
			}
			g.mu.Unlock()
		})
	}, nil
}

func (g *inflight) state(key string) MutationState {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.held[key]; busy {
		return StateMutating
	}
	return StateIdle
}
