package models

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    uint      `gorm:"not null;index:idx_message_room_created,priority:1"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Text      string    `gorm:"type:text;not null"`
	File      string
	CreatedAt time.Time `gorm:"index:idx_message_room_created,priority:2"`

	// Связи
	User User `gorm:"foreignKey:UserID"`
}
