package store

import (
	"sort"
	"time"

	"chathub/pkg/domain"
)

// AccountStore defines persistence operations for user accounts and their
// mirrored presence fields.
type AccountStore interface {
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	// ListUsers returns every user, online users first, each group ordered
	// by display name ascending. Clients render the list in this order.
	ListUsers() ([]domain.User, error)
	SetPresence(id string, online bool, lastSeen time.Time) error
}

// MessageStore defines append, ordered replay, and delete over persisted
// messages scoped to a room.
type MessageStore interface {
	// AppendMessage persists the message, assigning its id and server-side
	// CreatedAt, and returns the stored message. No other caller-supplied
	// field is mutated.
	AppendMessage(domain.Message) (domain.Message, error)
	// RoomHistory returns the entire history of a room in ascending
	// CreatedAt order. Unbounded on purpose; pagination would land here
	// without touching the hub.
	RoomHistory(roomID string) ([]domain.Message, error)
	// DeleteMessage removes a message by id and reports whether a row was
	// actually deleted. No ownership check is performed at this layer.
	DeleteMessage(id uint) (bool, error)
}

// Store combines account and message persistence.
type Store interface {
	AccountStore
	MessageStore
}

// SessionStore persists bearer session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}

// sortUsers applies the user-facing listing order: online first, then display
// name ascending within each group. The sort is stable so equal names keep
// the store's underlying order.
func sortUsers(users []domain.User) {
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].Online != users[j].Online {
			return users[i].Online
		}
		return users[i].Name < users[j].Name
	})
}
