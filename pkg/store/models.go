package store

import (
	"time"

	"chathub/pkg/domain"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Bio          string
	AvatarRef    string
	Online       bool `gorm:"not null;default:false"`
	LastSeenAt   time.Time
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type MessageModel struct {
	ID         uint   `gorm:"primaryKey"`
	RoomID     string `gorm:"not null;index:idx_room_created,priority:1"`
	SenderID   string `gorm:"not null;index"`
	SenderName string `gorm:"not null"`
	ReceiverID string `gorm:"not null"`
	Body       string `gorm:"type:text"`
	Kind       string `gorm:"not null;default:text"`
	MediaRef   string
	CreatedAt  time.Time `gorm:"not null;index:idx_room_created,priority:2"`
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Bio:          u.Bio,
		AvatarRef:    u.AvatarRef,
		Online:       u.Online,
		LastSeenAt:   u.LastSeenAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Bio:          m.Bio,
		AvatarRef:    m.AvatarRef,
		Online:       m.Online,
		LastSeenAt:   m.LastSeenAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func messageToModel(msg domain.Message) MessageModel {
	return MessageModel{
		ID:         msg.ID,
		RoomID:     msg.RoomID,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		ReceiverID: msg.ReceiverID,
		Body:       msg.Body,
		Kind:       string(msg.Kind),
		MediaRef:   msg.MediaRef,
		CreatedAt:  msg.CreatedAt,
	}
}

func messageFromModel(m MessageModel) domain.Message {
	return domain.Message{
		ID:         m.ID,
		RoomID:     m.RoomID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		ReceiverID: m.ReceiverID,
		Body:       m.Body,
		Kind:       domain.MessageKind(m.Kind),
		MediaRef:   m.MediaRef,
		CreatedAt:  m.CreatedAt,
	}
}
