package store

import (
	"sync"
	"time"

	"patlogger/internal/util"
)

// MemorySessionStore keeps sessions in process memory. Test use only.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	ttl      time.Duration
}

type memorySession struct {
	userID    string
	expiresAt time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]memorySession), ttl: ttl}
}

func (s *MemorySessionStore) NewSession(userID string) (string, error) {
	token := util.NewID()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = memorySession{userID: userID, expiresAt: time.Now().Add(s.ttl)}
	return token, nil
}

func (s *MemorySessionStore) GetUserIDByToken(token string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return "", false, nil
	}
	if time.Now().After(sess.expiresAt) {
		delete(s.sessions, token)
		return "", false, nil
	}
	return sess.userID, true, nil
}

func (s *MemorySessionStore) DeleteSession(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}
