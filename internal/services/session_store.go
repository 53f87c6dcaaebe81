package services

import (
	"errors"
	"sync"
	"time"
)

// ErrSessionNotFound indicates the register session does not exist or expired.
var ErrSessionNotFound = errors.New("session store: not found")

// SessionStore keeps register sessions. The register is a single in-store
// terminal, so an in-process store guarded by a mutex is sufficient; sessions
// expire after the configured TTL to avoid unbounded growth.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]RegisterSession
	ttl      time.Duration
	clock    func() time.Time
}

// NewSessionStore constructs a store with the given session TTL.
func NewSessionStore(ttl time.Duration, clock func() time.Time) *SessionStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if clock == nil {
		clock = time.Now
	}
	return &SessionStore{
		sessions: make(map[string]RegisterSession),
		ttl:      ttl,
		clock:    func() time.Time { return clock().UTC() },
	}
}

// Put stores the session, refreshing its expiry.
func (s *SessionStore) Put(session RegisterSession) RegisterSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	session.UpdatedAt = now
	session.ExpiresAt = now.Add(s.ttl)
	s.sessions[session.ID] = session
	s.evictExpiredLocked(now)
	return session
}

// Get returns the session when present and unexpired.
func (s *SessionStore) Get(sessionID string) (RegisterSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return RegisterSession{}, ErrSessionNotFound
	}
	if s.clock().After(session.ExpiresAt) {
		delete(s.sessions, sessionID)
		return RegisterSession{}, ErrSessionNotFound
	}
	return session, nil
}

// Delete removes the session.
func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

func (s *SessionStore) evictExpiredLocked(now time.Time) {
	for id, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
}
