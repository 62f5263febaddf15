package database

import (
	"context"

	"github.com/thereayou/tourism-chat/internal/models"
)

func (d *Database) SaveMessage(ctx context.Context, message *models.Message) error {
	return translate(d.conn(ctx).Create(message).Error)
}

func (d *Database) GetMessage(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	if err := d.conn(ctx).Preload("User").First(&message, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &message, nil
}

// DeleteMessage возвращает ErrNotFound, если сообщение уже удалено
func (d *Database) DeleteMessage(ctx context.Context, id uint) error {
	res := d.conn(ctx).Delete(&models.Message{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetLastMessage возвращает самое позднее сообщение комнаты или nil
func (d *Database) GetLastMessage(ctx context.Context, roomID uint) (*models.Message, error) {
	var messages []models.Message
	err := d.conn(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(1).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return &messages[0], nil
}

// GetRoomMessages получает сообщения комнаты с пагинацией
func (d *Database) GetRoomMessages(ctx context.Context, roomID uint, limit int, beforeID uint) ([]models.Message, error) {
	var messages []models.Message

	query := d.conn(ctx).Where("room_id = ?", roomID)

	// Если указан beforeID, получаем сообщения до него
	if beforeID != 0 {
		var beforeMsg models.Message
		if err := d.conn(ctx).First(&beforeMsg, "id = ?", beforeID).Error; err == nil {
			query = query.Where("created_at < ? OR (created_at = ? AND id < ?)",
				beforeMsg.CreatedAt, beforeMsg.CreatedAt, beforeMsg.ID)
		}
	}

	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Preload("User").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Разворачиваем порядок, чтобы старые сообщения были первыми
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
