package handler

import (
	"errors"
	"sync"

	"theater-recon/internal/reconcile/model"
)

var ErrSessionNotFound = errors.New("session not found")

type sessionEntry struct {
	mu sync.Mutex // serializes operator steps on one session
	s  *model.MatchSession
}

// SessionStore keeps operator sessions in memory between requests.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: map[string]*sessionEntry{}}
}

func (st *SessionStore) Add(s *model.MatchSession) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = &sessionEntry{s: s}
}

// With runs fn while holding the session's lock.
func (st *SessionStore) With(id string, fn func(*model.MatchSession) error) error {
	st.mu.RLock()
	e, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.s)
}

func (st *SessionStore) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	return ok
}
