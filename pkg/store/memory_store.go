package store

import (
	"sync"
	"time"

	"gorm.io/gorm"

	"chathub/pkg/domain"
)

// MemoryStore keeps accounts and messages in-process. It backs tests and
// single-node development runs without Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]domain.User // key: user ID
	email    map[string]string      // email -> user ID
	messages []domain.Message
	nextID   uint
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]domain.User),
		email:  make(map[string]string),
		nextID: 1,
	}
}

// SaveUser stores or replaces a user record.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.users[u.ID]; ok && prev.Email != u.Email {
		delete(m.email, prev.Email)
	}
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// HasUserEmail checks if email exists.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// ListUsers returns all users, online first, then name ascending.
func (m *MemoryStore) ListUsers() ([]domain.User, error) {
	m.mu.RLock()
	users := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	m.mu.RUnlock()
	sortUsers(users)
	return users, nil
}

// SetPresence mirrors the registry's online flag and last-seen time.
func (m *MemoryStore) SetPresence(id string, online bool, lastSeen time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Online = online
	u.LastSeenAt = lastSeen
	m.users[id] = u
	return nil
}

// AppendMessage persists a message, assigning id and server-side CreatedAt.
func (m *MemoryStore) AppendMessage(msg domain.Message) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = m.nextID
	m.nextID++
	msg.CreatedAt = time.Now().UTC()
	m.messages = append(m.messages, msg)
	return msg, nil
}

// RoomHistory returns every message in a room, oldest first. Messages are
// appended in CreatedAt order, with id as the tie-break, so a scan preserves
// chronology.
func (m *MemoryStore) RoomHistory(roomID string) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	history := make([]domain.Message, 0)
	for _, msg := range m.messages {
		if msg.RoomID == roomID {
			history = append(history, msg)
		}
	}
	return history, nil
}

// DeleteMessage removes a message by id, reporting whether it existed.
func (m *MemoryStore) DeleteMessage(id uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, msg := range m.messages {
		if msg.ID == id {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
