package chat

import (
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/tourism-chat/internal/models"
)

const createdAtLayout = "02-01-2006 15:04:05"

const (
	ActionCreate = "create"
	ActionDelete = "delete"
)

type UserView struct {
	ID        uuid.UUID   `json:"id"`
	Username  string      `json:"username"`
	AvatarURL string      `json:"avatar_url"`
	Role      models.Role `json:"role"`
}

type MessageView struct {
	ID                 uint      `json:"id"`
	Room               uint      `json:"room"`
	Text               string    `json:"text"`
	File               *string   `json:"file"`
	User               UserView  `json:"user"`
	CreatedAt          time.Time `json:"created_at"`
	CreatedAtFormatted string    `json:"created_at_formatted"`
}

// MessageEvent рассылается подписчикам комнаты и сообщения
type MessageEvent struct {
	Data   MessageView `json:"data"`
	Action string      `json:"action"`
	PK     uint        `json:"pk"`
}

// PresenceUpdate рассылается комнате при входе и выходе пользователей
type PresenceUpdate struct {
	Users []UserView `json:"users"`
}

type ChatListEntry struct {
	RoomID      uint    `json:"room_id"`
	RoomName    string  `json:"room_name"`
	LastMessage *string `json:"last_message"`
}

type ChatList struct {
	ChatList []ChatListEntry `json:"chat_list"`
}

type RoomView struct {
	ID        uint       `json:"id"`
	Name      string     `json:"name"`
	HostID    uuid.UUID  `json:"host_id"`
	CreatedAt time.Time  `json:"created_at"`
	Users     []UserView `json:"current_users,omitempty"`
}

func NewUserView(u *models.User) UserView {
	return UserView{
		ID:        u.ID,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
		Role:      u.Role,
	}
}

func NewUserViews(users []models.User) []UserView {
	views := make([]UserView, 0, len(users))
	for i := range users {
		views = append(views, NewUserView(&users[i]))
	}
	return views
}

func NewMessageView(m *models.Message) MessageView {
	view := MessageView{
		ID:                 m.ID,
		Room:               m.RoomID,
		Text:               m.Text,
		User:               NewUserView(&m.User),
		CreatedAt:          m.CreatedAt,
		CreatedAtFormatted: m.CreatedAt.Format(createdAtLayout),
	}
	if m.File != "" {
		file := m.File
		view.File = &file
	}
	return view
}

func NewRoomView(r *models.Room, present []models.User) RoomView {
	view := RoomView{
		ID:        r.ID,
		Name:      r.Name,
		HostID:    r.HostID,
		CreatedAt: r.CreatedAt,
	}
	if present != nil {
		view.Users = NewUserViews(present)
	}
	return view
}
