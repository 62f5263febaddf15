package models

import (
	"time"

	"github.com/google/uuid"
)

type Room struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;size:255;not null"`
	HostID    uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time

	// Связи
	Host     User      `gorm:"foreignKey:HostID;constraint:OnDelete:CASCADE"`
	Messages []Message `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
}

// UserRoom фиксирует, что пользователь хоть раз заходил в комнату
type UserRoom struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_room"`
	RoomID    uint      `gorm:"not null;uniqueIndex:idx_user_room;index"`
	CreatedAt time.Time

	Room Room `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
}

func (UserRoom) TableName() string {
	return "user_rooms"
}
