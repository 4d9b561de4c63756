package auth

import (
	"context"
	"sync"
)

// InMemorySessionStore keeps sessions keyed by user, mirroring the single
// refresh-token column of the Postgres store. It serves tests and local runs.
type InMemorySessionStore struct {
	mu     sync.RWMutex
	byUser map[string]Session
}

// NewInMemorySessionStore returns an empty store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{byUser: make(map[string]Session)}
}

func (s *InMemorySessionStore) Save(_ context.Context, session Session) error {
	s.mu.Lock()
	s.byUser[session.UserID] = session
	s.mu.Unlock()
	return nil
}

func (s *InMemorySessionStore) Rotate(_ context.Context, previous string, next Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.byUser[next.UserID]; !ok || current.RefreshToken != previous {
		return ErrSessionNotFound
	}
	s.byUser[next.UserID] = next
	return nil
}

func (s *InMemorySessionStore) Find(_ context.Context, refreshToken string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if session, ok := s.lookup(refreshToken); ok {
		return session, nil
	}
	return Session{}, ErrSessionNotFound
}

func (s *InMemorySessionStore) DeleteForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUser[userID]; !ok {
		return ErrSessionNotFound
	}
	delete(s.byUser, userID)
	return nil
}

// Has reports whether refreshToken is the live token of some user.
func (s *InMemorySessionStore) Has(refreshToken string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.lookup(refreshToken)
	return ok
}

// lookup scans the user table; callers hold the lock.
func (s *InMemorySessionStore) lookup(refreshToken string) (Session, bool) {
	for _, session := range s.byUser {
		if session.RefreshToken == refreshToken {
			return session, true
		}
	}
	return Session{}, false
}
