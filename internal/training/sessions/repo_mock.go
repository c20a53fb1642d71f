package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/swinglab/swinglab-backend/internal/training"
)

type repoMock struct {
	mu        sync.Mutex
	sessions  map[string]Session
	protocols map[string]training.Protocol
}

func NewMockRepo() *repoMock {
	return &repoMock{
		sessions:  make(map[string]Session),
		protocols: make(map[string]training.Protocol),
	}
}

func (r *repoMock) AddProtocol(protocol training.Protocol) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.protocols[protocol.ID] = protocol
}

func (r *repoMock) Add(_ context.Context, session Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	return nil
}

func (r *repoMock) GetSession(_ context.Context, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (r *repoMock) GetProtocol(_ context.Context, id string) (*training.Protocol, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	protocol, ok := r.protocols[id]
	if !ok {
		return nil, ErrProtocolNotFound
	}
	return &protocol, nil
}

func (r *repoMock) Complete(_ context.Context, id string, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	session.Status = StatusCompleted
	if session.CompletedAt == nil {
		session.CompletedAt = &completedAt
	}
	r.sessions[id] = session
	return nil
}
