package database

import (
	"context"

	"github.com/thereayou/tourism-chat/internal/models"
	"gorm.io/gorm"
)

func (d *Database) CreateListing(ctx context.Context, listing *models.Listing) error {
	return translate(d.conn(ctx).Create(listing).Error)
}

func (d *Database) GetListing(ctx context.Context, id uint) (*models.Listing, error) {
	var listing models.Listing
	if err := d.conn(ctx).First(&listing, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &listing, nil
}

func (d *Database) SetListingRoom(ctx context.Context, listingID, roomID uint) error {
	return d.conn(ctx).Model(&models.Listing{}).
		Where("id = ?", listingID).
		Update("chat_room_id", roomID).Error
}

// DeleteListing удаляет объявление, его отзывы и связанную комнату чата
func (d *Database) DeleteListing(ctx context.Context, id uint) error {
	return d.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var listing models.Listing
		if err := tx.First(&listing, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		if err := tx.Delete(&models.Review{}, "listing_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&listing).Error; err != nil {
			return err
		}
		if listing.ChatRoomID != nil {
			if err := deleteRoomTx(tx, *listing.ChatRoomID); err != nil && err != ErrNotFound {
				return err
			}
		}
		return nil
	})
}

// AddReview сохраняет отзыв и пересчитывает средний рейтинг объявления
func (d *Database) AddReview(ctx context.Context, review *models.Review) (float64, error) {
	var avg float64
	err := d.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(review).Error; err != nil {
			return err
		}
		row := tx.Model(&models.Review{}).
			Select("COALESCE(AVG(rating), 0)").
			Where("listing_id = ?", review.ListingID).
			Row()
		if err := row.Scan(&avg); err != nil {
			return err
		}
		res := tx.Model(&models.Listing{}).Where("id = ?", review.ListingID).Update("rating", avg)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	return avg, err
}
