package store

import (
	"sync"
	"time"

	"chathub/internal/util"
)

// MemorySessionStore keeps sessions in-process with TTL. Suitable for tests
// and single-node development runs.
type MemorySessionStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	sess map[string]memorySession
}

type memorySession struct {
	userID    string
	expiresAt time.Time
}

// NewMemorySessionStore builds an in-memory session store.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemorySessionStore{
		ttl:  ttl,
		sess: make(map[string]memorySession),
	}
}

// NewSession stores a token -> userID mapping with TTL.
func (s *MemorySessionStore) NewSession(userID string) (string, error) {
	token := util.NewID()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess[token] = memorySession{userID: userID, expiresAt: time.Now().Add(s.ttl)}
	return token, nil
}

// GetUserIDByToken resolves token to user ID.
func (s *MemorySessionStore) GetUserIDByToken(token string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sess[token]
	if !ok {
		return "", false, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.sess, token)
		return "", false, nil
	}
	return entry.userID, true, nil
}

// DeleteSession removes a token mapping.
func (s *MemorySessionStore) DeleteSession(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sess, token)
	return nil
}
