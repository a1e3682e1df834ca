package catalog

import (
	"context"
	"sync"

	"github.com/swasher/productus/internal/domain"
)

// Registry hands out one State per user, creating it on first use so the
// standing subscriptions start when a user first touches the catalog.
type Registry struct {
	ctx     context.Context
	service domain.CatalogService

	mu     sync.Mutex
	states map[string]*State
}

func NewRegistry(ctx context.Context, service domain.CatalogService) *Registry {
	return &Registry{
		ctx:     ctx,
		service: service,
		states:  map[string]*State{},
	}
}

// ForSession returns the user's state module, creating it if needed.
func (r *Registry) ForSession(sess domain.Session) *State {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state, ok := r.states[sess.UserID]; ok {
		return state
	}

	state := NewState(r.ctx, r.service, sess)
	r.states[sess.UserID] = state
	return state
}

// Evict closes and removes a user's state, e.g. on sign-out.
func (r *Registry) Evict(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state, ok := r.states[userID]; ok {
		state.Close()
		delete(r.states, userID)
	}
}

// Close shuts down every state in the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for userID, state := range r.states {
		state.Close()
		delete(r.states, userID)
	}
}
