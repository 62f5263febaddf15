// Package listings минимальная часть каталога объявлений, нужная чату:
// создание объявления заводит комнату, удаление удаляет её вместе с ним.
package listings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/thereayou/tourism-chat/internal/database"
	"github.com/thereayou/tourism-chat/internal/models"
)

var (
	ErrNotFound      = errors.New("listing not found")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidKind   = errors.New("invalid listing kind")
	ErrInvalidTitle  = errors.New("invalid title")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// RoomCreator заводит комнату чата для объявления и освобождает её после удаления
type RoomCreator interface {
	CreateRoomForListing(ctx context.Context, kind models.ListingKind, listingID uint, hostID uuid.UUID) (*models.Room, error)
	ReleaseRoom(roomID uint)
}

type Service struct {
	db    *database.Database
	rooms RoomCreator
}

func NewService(db *database.Database, rooms RoomCreator) *Service {
	return &Service{db: db, rooms: rooms}
}

// Create создаёт объявление; для отелей, ресторанов и экскурсий сразу заводится комната
func (s *Service) Create(ctx context.Context, owner *models.User, kind models.ListingKind, title string) (*models.Listing, error) {
	if owner.Role != models.RolePartner && !owner.IsAdmin() {
		return nil, ErrForbidden
	}
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	title = strings.TrimSpace(title)
	if title == "" || len(title) > 255 {
		return nil, ErrInvalidTitle
	}

	listing := &models.Listing{Kind: kind, Title: title, OwnerID: owner.ID}
	if err := s.db.CreateListing(ctx, listing); err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}

	if kind.HasChatRoom() {
		room, err := s.rooms.CreateRoomForListing(ctx, kind, listing.ID, owner.ID)
		if err != nil {
			if delErr := s.db.DeleteListing(ctx, listing.ID); delErr != nil {
				log.Error().Err(delErr).Uint("listing_id", listing.ID).Msg("rollback listing after room failure")
			}
			return nil, fmt.Errorf("create listing room: %w", err)
		}
		if err := s.db.SetListingRoom(ctx, listing.ID, room.ID); err != nil {
			return nil, fmt.Errorf("link listing room: %w", err)
		}
		listing.ChatRoomID = &room.ID
	}

	log.Info().Uint("listing_id", listing.ID).Str("kind", string(kind)).Str("owner_id", owner.ID.String()).Msg("listing created")
	return listing, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Listing, error) {
	listing, err := s.db.GetListing(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNotFound
	}
	return listing, err
}

// Delete удаляет объявление и его комнату; разрешено владельцу и администратору
func (s *Service) Delete(ctx context.Context, actor *models.User, id uint) error {
	listing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if listing.OwnerID != actor.ID && !actor.IsAdmin() {
		return ErrForbidden
	}
	if err := s.db.DeleteListing(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete listing %d: %w", id, err)
	}
	if listing.ChatRoomID != nil {
		s.rooms.ReleaseRoom(*listing.ChatRoomID)
	}
	log.Info().Uint("listing_id", id).Str("actor_id", actor.ID.String()).Msg("listing deleted")
	return nil
}

// AddReview сохраняет отзыв и возвращает пересчитанный рейтинг
func (s *Service) AddReview(ctx context.Context, user *models.User, listingID uint, rating int, text string) (float64, error) {
	if rating < 1 || rating > 5 {
		return 0, ErrInvalidRating
	}
	if _, err := s.Get(ctx, listingID); err != nil {
		return 0, err
	}
	avg, err := s.db.AddReview(ctx, &models.Review{
		ListingID: listingID,
		UserID:    user.ID,
		Rating:    rating,
		Text:      strings.TrimSpace(text),
	})
	if errors.Is(err, database.ErrNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("add review: %w", err)
	}
	return avg, nil
}
