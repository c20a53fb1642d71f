package program

import (
	"context"
	"sync"
)

type repoMock struct {
	mu     sync.Mutex
	states map[string]State
}

func NewMockRepo() *repoMock {
	return &repoMock{
		states: make(map[string]State),
	}
}

func (r *repoMock) Get(_ context.Context, playerID string) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[playerID]
	if !ok {
		return nil, ErrStateNotFound
	}
	c := state.Clone()
	return &c, nil
}

func (r *repoMock) Save(_ context.Context, state State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[state.PlayerID] = state.Clone()
	return nil
}

func (r *repoMock) Delete(_ context.Context, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.states[playerID]; !ok {
		return ErrStateNotFound
	}
	delete(r.states, playerID)
	return nil
}
