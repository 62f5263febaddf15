package database

import (
	"context"

	"github.com/thereayou/tourism-chat/internal/models"
	"gorm.io/gorm"
)

func (d *Database) CreateRoom(ctx context.Context, room *models.Room) error {
	return translate(d.conn(ctx).Create(room).Error)
}

func (d *Database) GetRoom(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	if err := d.conn(ctx).First(&room, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &room, nil
}

// DeleteRoom удаляет комнату вместе с сообщениями и записями участников
func (d *Database) DeleteRoom(ctx context.Context, id uint) error {
	return d.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteRoomTx(tx, id)
	})
}

func deleteRoomTx(tx *gorm.DB, id uint) error {
	if err := tx.Delete(&models.Message{}, "room_id = ?", id).Error; err != nil {
		return err
	}
	if err := tx.Delete(&models.UserRoom{}, "room_id = ?", id).Error; err != nil {
		return err
	}
	res := tx.Delete(&models.Room{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
