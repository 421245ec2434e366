package domain

import "time"

// MessageKind distinguishes plain text messages from image messages.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
)

// User is a chat account. Online and LastSeenAt are owned by the presence
// registry; the store mirrors them so the HTTP user listing can apply the
// same online-first ordering as the presence snapshot.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Bio          string    `json:"bio"`
	AvatarRef    string    `json:"avatarRef,omitempty"`
	Online       bool      `json:"online"`
	LastSeenAt   time.Time `json:"lastSeenAt"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserSummary is the presence-snapshot view of a user, in the exact shape
// pushed to connected clients.
type UserSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Bio        string    `json:"bio"`
	AvatarRef  string    `json:"avatarRef,omitempty"`
	Online     bool      `json:"online"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// Summary projects the user into its presence-snapshot shape.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:         u.ID,
		Name:       u.Name,
		Bio:        u.Bio,
		AvatarRef:  u.AvatarRef,
		Online:     u.Online,
		LastSeenAt: u.LastSeenAt,
	}
}

// Message is a persisted chat message. ID and CreatedAt are assigned by the
// store at append time; everything else is immutable after that.
//
// A message with an empty body and no media ref is accepted and delivered
// as-is rather than rejected.
type Message struct {
	ID         uint        `json:"id"`
	RoomID     string      `json:"roomId"`
	SenderID   string      `json:"senderId"`
	SenderName string      `json:"senderName"`
	ReceiverID string      `json:"receiverId"`
	Body       string      `json:"body"`
	Kind       MessageKind `json:"kind"`
	MediaRef   string      `json:"mediaRef,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}
