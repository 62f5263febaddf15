package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/thereayou/tourism-chat/internal/models"
	"gorm.io/gorm/clause"
)

// EnsureMembership создает запись user_rooms, если ее еще нет
func (d *Database) EnsureMembership(ctx context.Context, userID uuid.UUID, roomID uint) error {
	membership := models.UserRoom{UserID: userID, RoomID: roomID}
	return d.conn(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&membership).Error
}

func (d *Database) IsMember(ctx context.Context, userID uuid.UUID, roomID uint) (bool, error) {
	var count int64
	err := d.conn(ctx).Model(&models.UserRoom{}).
		Where("user_id = ? AND room_id = ?", userID, roomID).
		Count(&count).Error
	return count > 0, err
}

// GetUserRooms возвращает комнаты пользователя в порядке первого входа
func (d *Database) GetUserRooms(ctx context.Context, userID uuid.UUID) ([]models.Room, error) {
	var memberships []models.UserRoom
	err := d.conn(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Preload("Room").
		Find(&memberships).Error
	if err != nil {
		return nil, err
	}

	rooms := make([]models.Room, 0, len(memberships))
	for _, m := range memberships {
		if m.Room.ID == 0 {
			continue
		}
		rooms = append(rooms, m.Room)
	}
	return rooms, nil
}
