package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/thereayou/tourism-chat/internal/database"
	"github.com/thereayou/tourism-chat/internal/models"
)

const maxRoomNameLength = 255

// Registry находит и создаёт комнаты в базе.
// Об удалении комнаты сообщает подписанным через OnRelease.
type Registry struct {
	db *database.Database

	mu      sync.RWMutex
	release []func(roomID uint)
}

func NewRegistry(db *database.Database) *Registry {
	return &Registry{db: db}
}

func (r *Registry) Resolve(ctx context.Context, id uint) (*models.Room, error) {
	room, err := r.db.GetRoom(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room %d: %w", id, err)
	}
	return room, nil
}

func (r *Registry) CreateRoom(ctx context.Context, name string, hostID uuid.UUID) (*models.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxRoomNameLength {
		return nil, ErrInvalidRoomName
	}

	room := &models.Room{Name: name, HostID: hostID}
	err := r.db.CreateRoom(ctx, room)
	if errors.Is(err, database.ErrDuplicate) {
		return nil, ErrRoomNameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create room %q: %w", name, err)
	}

	log.Info().Uint("room_id", room.ID).Str("name", room.Name).Str("host_id", hostID.String()).Msg("room created")
	return room, nil
}

// CreateRoomForListing заводит комнату объявления с именем <kind>_<id>
func (r *Registry) CreateRoomForListing(ctx context.Context, kind models.ListingKind, listingID uint, hostID uuid.UUID) (*models.Room, error) {
	return r.CreateRoom(ctx, fmt.Sprintf("%s_%d", kind, listingID), hostID)
}

// DeleteRoom удаляет комнату вместе с сообщениями и участниками
func (r *Registry) DeleteRoom(ctx context.Context, id uint) error {
	err := r.db.DeleteRoom(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return ErrRoomNotFound
	}
	if err != nil {
		return fmt.Errorf("delete room %d: %w", id, err)
	}
	log.Info().Uint("room_id", id).Msg("room deleted")
	r.ReleaseRoom(id)
	return nil
}

// OnRelease регистрирует очистку живого состояния удалённой комнаты
func (r *Registry) OnRelease(fn func(roomID uint)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.release = append(r.release, fn)
}

// ReleaseRoom вызывается после удаления комнаты из базы, в том числе каскадного
func (r *Registry) ReleaseRoom(roomID uint) {
	r.mu.RLock()
	hooks := append(([]func(uint))(nil), r.release...)
	r.mu.RUnlock()
	for _, fn := range hooks {
		fn(roomID)
	}
}
