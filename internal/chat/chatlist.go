package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/thereayou/tourism-chat/internal/database"
)

// ChatListProjector собирает список чатов пользователя с последними сообщениями.
// Это снимок на момент запроса, он не обновляется сам.
type ChatListProjector struct {
	db *database.Database
}

func NewChatListProjector(db *database.Database) *ChatListProjector {
	return &ChatListProjector{db: db}
}

func (p *ChatListProjector) ChatList(ctx context.Context, userID uuid.UUID) ([]ChatListEntry, error) {
	rooms, err := p.db.GetUserRooms(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user rooms: %w", err)
	}

	entries := make([]ChatListEntry, 0, len(rooms))
	for _, room := range rooms {
		last, err := p.db.GetLastMessage(ctx, room.ID)
		if err != nil {
			return nil, fmt.Errorf("last message of room %d: %w", room.ID, err)
		}
		entry := ChatListEntry{RoomID: room.ID, RoomName: room.Name}
		if last != nil {
			text := last.Text
			entry.LastMessage = &text
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
