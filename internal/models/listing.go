package models

import (
	"time"

	"github.com/google/uuid"
)

type ListingKind string

const (
	KindHotel      ListingKind = "hotel"
	KindRestaurant ListingKind = "restaurant"
	KindTransport  ListingKind = "transport"
	KindExcursion  ListingKind = "excursion"
)

// HasChatRoom сообщает, заводится ли для объявления комната чата
func (k ListingKind) HasChatRoom() bool {
	return k == KindHotel || k == KindRestaurant || k == KindExcursion
}

func (k ListingKind) Valid() bool {
	return k.HasChatRoom() || k == KindTransport
}

type Listing struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	Kind       ListingKind `gorm:"size:32;not null;index" json:"kind"`
	Title      string      `gorm:"size:255;not null" json:"title"`
	OwnerID    uuid.UUID   `gorm:"type:uuid;not null;index" json:"owner_id"`
	ChatRoomID *uint       `json:"chat_room_id"`
	Rating     float64     `gorm:"not null;default:0" json:"rating"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ListingID uint      `gorm:"not null;index" json:"listing_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Rating    int       `gorm:"not null" json:"rating"`
	Text      string    `gorm:"type:text" json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
