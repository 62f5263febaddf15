// Package presence отслеживает, какие пользователи сейчас находятся в комнатах.
// Состояние живёт только в памяти процесса и сбрасывается при перезапуске.
package presence

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/thereayou/tourism-chat/internal/models"
)

// MembershipStore сохраняет постоянную связь пользователь-комната
type MembershipStore interface {
	EnsureMembership(ctx context.Context, userID uuid.UUID, roomID uint) error
}

type entry struct {
	user  models.User
	conns map[uuid.UUID]struct{}
}

type Tracker struct {
	store MembershipStore

	mu    sync.RWMutex
	rooms map[uint]map[uuid.UUID]*entry
}

func NewTracker(store MembershipStore) *Tracker {
	return &Tracker{
		store: store,
		rooms: make(map[uint]map[uuid.UUID]*entry),
	}
}

// Add отмечает соединение connID пользователя в комнате.
// Запись user_rooms создаётся до изменения живого состояния.
func (t *Tracker) Add(ctx context.Context, user *models.User, roomID uint, connID uuid.UUID) error {
	if err := t.store.EnsureMembership(ctx, user.ID, roomID); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	users, ok := t.rooms[roomID]
	if !ok {
		users = make(map[uuid.UUID]*entry)
		t.rooms[roomID] = users
	}
	e, ok := users[user.ID]
	if !ok {
		e = &entry{conns: make(map[uuid.UUID]struct{})}
		users[user.ID] = e
	}
	e.user = *user
	e.conns[connID] = struct{}{}
	return nil
}

// Remove убирает соединение из комнаты. Возвращает true, если пользователь
// покинул комнату полностью (других его соединений в ней нет).
func (t *Tracker) Remove(userID uuid.UUID, roomID uint, connID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	users, ok := t.rooms[roomID]
	if !ok {
		return false
	}
	e, ok := users[userID]
	if !ok {
		return false
	}
	if _, ok := e.conns[connID]; !ok {
		return false
	}

	delete(e.conns, connID)
	if len(e.conns) > 0 {
		return false
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(t.rooms, roomID)
	}
	return true
}

// Current возвращает пользователей комнаты, отсортированных по имени
func (t *Tracker) Current(roomID uint) []models.User {
	t.mu.RLock()
	users := make([]models.User, 0, len(t.rooms[roomID]))
	for _, e := range t.rooms[roomID] {
		users = append(users, e.user)
	}
	t.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		if users[i].Username != users[j].Username {
			return users[i].Username < users[j].Username
		}
		return users[i].ID.String() < users[j].ID.String()
	})
	return users
}

// DropRoom забывает всех присутствующих удалённой комнаты
func (t *Tracker) DropRoom(roomID uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rooms, roomID)
}
