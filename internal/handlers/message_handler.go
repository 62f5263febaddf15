package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/thereayou/tourism-chat/internal/chat"
	"github.com/thereayou/tourism-chat/internal/database"
	"github.com/thereayou/tourism-chat/internal/metrics"
	"github.com/thereayou/tourism-chat/internal/models"
	"github.com/thereayou/tourism-chat/internal/presence"
	ws "github.com/thereayou/tourism-chat/internal/websocket"
)

// MessageHandler выполняет действия, приходящие по WebSocket
type MessageHandler struct {
	db       *database.Database
	hub      *ws.Hub
	registry *chat.Registry
	presence *presence.Tracker
	messages *chat.MessageStore
	chatList *chat.ChatListProjector
}

func NewMessageHandler(
	db *database.Database,
	hub *ws.Hub,
	registry *chat.Registry,
	tracker *presence.Tracker,
	messages *chat.MessageStore,
	chatList *chat.ChatListProjector,
) *MessageHandler {
	return &MessageHandler{
		db:       db,
		hub:      hub,
		registry: registry,
		presence: tracker,
		messages: messages,
		chatList: chatList,
	}
}

func (h *MessageHandler) HandleMessage(ctx context.Context, client *ws.Client, req *ws.Request) {
	var (
		data interface{}
		err  error
	)

	switch req.Action {
	case ws.ActionJoinRoom:
		data, err = h.joinRoom(ctx, client, req)
	case ws.ActionLeaveRoom:
		data, err = h.leaveRoom(client, req)
	case ws.ActionCreateMessage:
		data, err = h.createMessage(ctx, client, req)
	case ws.ActionDeleteMessage:
		data, err = h.deleteMessage(ctx, client, req)
	case ws.ActionSubscribeRoom:
		data, err = h.subscribeRoom(ctx, client, req)
	case ws.ActionUnsubscribeRoom:
		data, err = h.unsubscribeRoom(client, req)
	case ws.ActionSubscribeMessage:
		data, err = h.subscribeMessage(ctx, client, req)
	case ws.ActionGetUserChatList:
		data, err = h.getUserChatList(ctx, client)
	default:
		err = ws.ErrUnknownAction
	}

	if err != nil {
		status, msg := errorStatus(err)
		if status == http.StatusInternalServerError {
			log.Error().Err(err).
				Str("client_id", client.ID.String()).
				Str("user_id", client.UserID.String()).
				Str("action", string(req.Action)).
				Msg("websocket action failed")
		}
		client.Reply(ws.NewErrorResponse(req, status, msg))
		return
	}
	client.Reply(ws.NewResponse(req, data))
}

// HandleDisconnect убирает присутствие в текущей комнате и оповещает оставшихся
func (h *MessageHandler) HandleDisconnect(client *ws.Client) {
	if roomID, ok := client.RoomSubscribe(); ok {
		h.leave(client, roomID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.db.UpdateLastSeen(ctx, client.UserID); err != nil {
		log.Warn().Err(err).Str("user_id", client.UserID.String()).Msg("update last seen")
	}
}

func requirePK(req *ws.Request) (uint, error) {
	if req.PK == nil {
		return 0, ws.ErrInvalidMessage
	}
	return *req.PK, nil
}

func (h *MessageHandler) joinRoom(ctx context.Context, client *ws.Client, req *ws.Request) (interface{}, error) {
	roomID, err := requirePK(req)
	if err != nil {
		return nil, err
	}
	room, err := h.registry.Resolve(ctx, roomID)
	if err != nil {
		return nil, err
	}

	// Одна комната на соединение: из предыдущей выходим
	if current, ok := client.RoomSubscribe(); ok && current != roomID {
		h.leave(client, current)
	}

	if err := h.presence.Add(ctx, client.User, roomID, client.ID); err != nil {
		return nil, err
	}
	client.SetRoomSubscribe(roomID)
	h.hub.JoinRoomGroup(client, roomID)
	users := h.broadcastPresence(roomID)

	log.Debug().Str("user_id", client.UserID.String()).Uint("room_id", roomID).Msg("joined room")
	return chat.NewRoomView(room, users), nil
}

func (h *MessageHandler) leaveRoom(client *ws.Client, req *ws.Request) (interface{}, error) {
	roomID, err := requirePK(req)
	if err != nil {
		return nil, err
	}
	h.leave(client, roomID)
	return pkReply{PK: roomID}, nil
}

// leave идемпотентен: повторный выход ничего не рассылает
func (h *MessageHandler) leave(client *ws.Client, roomID uint) {
	changed := h.presence.Remove(client.UserID, roomID, client.ID)
	if current, ok := client.RoomSubscribe(); ok && current == roomID {
		client.ClearRoomSubscribe()
		h.hub.LeaveRoomGroup(client, roomID)
	}
	if changed {
		h.broadcastPresence(roomID)
		log.Debug().Str("user_id", client.UserID.String()).Uint("room_id", roomID).Msg("left room")
	}
}

// broadcastPresence снимает список присутствующих и рассылает его под замком
// комнаты, чтобы последним до подписчиков доходил актуальный список
func (h *MessageHandler) broadcastPresence(roomID uint) []models.User {
	var users []models.User
	h.messages.WithRoomLock(roomID, func() {
		users = h.presence.Current(roomID)
		payload, err := json.Marshal(chat.PresenceUpdate{Users: chat.NewUserViews(users)})
		if err != nil {
			log.Error().Err(err).Uint("room_id", roomID).Msg("encode presence")
			return
		}
		h.hub.SendToRoom(roomID, payload)
		metrics.PresenceBroadcasts.Inc()
	})
	return users
}

// ReleaseRoom убирает живое состояние удалённой комнаты. Участники получают
// пустой список присутствующих и остаются без активной комнаты.
func (h *MessageHandler) ReleaseRoom(roomID uint) {
	var clients []*ws.Client
	h.messages.WithRoomLock(roomID, func() {
		payload, err := json.Marshal(chat.PresenceUpdate{Users: []chat.UserView{}})
		if err == nil {
			h.hub.SendToRoom(roomID, payload)
		}
		clients = h.hub.DropRoomGroup(roomID)
		h.presence.DropRoom(roomID)
	})
	h.messages.ForgetRoom(roomID)

	for _, client := range clients {
		if current, ok := client.RoomSubscribe(); ok && current == roomID {
			client.ClearRoomSubscribe()
		}
	}
	log.Info().Uint("room_id", roomID).Int("clients", len(clients)).Msg("room released")
}

func (h *MessageHandler) createMessage(ctx context.Context, client *ws.Client, req *ws.Request) (interface{}, error) {
	roomID, ok := client.RoomSubscribe()
	if !ok {
		return nil, chat.ErrNoActiveRoom
	}

	var file *chat.Attachment
	if req.File != nil {
		file = &chat.Attachment{Name: req.File.Name, Content: req.File.Content}
	}

	message, err := h.messages.Create(ctx, roomID, client.User, req.Message, file)
	if err != nil {
		return nil, err
	}
	return chat.NewMessageView(message), nil
}

func (h *MessageHandler) deleteMessage(ctx context.Context, client *ws.Client, req *ws.Request) (interface{}, error) {
	messageID, err := requirePK(req)
	if err != nil {
		return nil, err
	}
	if _, err := h.messages.Delete(ctx, messageID, client.User); err != nil {
		return nil, err
	}
	return pkReply{PK: messageID}, nil
}

func (h *MessageHandler) subscribeRoom(ctx context.Context, client *ws.Client, req *ws.Request) (interface{}, error) {
	roomID, err := requirePK(req)
	if err != nil {
		return nil, err
	}
	if _, err := h.registry.Resolve(ctx, roomID); err != nil {
		return nil, err
	}
	h.hub.SubscribeRoom(client, roomID)
	return pkReply{PK: roomID}, nil
}

func (h *MessageHandler) unsubscribeRoom(client *ws.Client, req *ws.Request) (interface{}, error) {
	roomID, err := requirePK(req)
	if err != nil {
		return nil, err
	}
	h.hub.UnsubscribeRoom(client, roomID)
	return pkReply{PK: roomID}, nil
}

func (h *MessageHandler) subscribeMessage(ctx context.Context, client *ws.Client, req *ws.Request) (interface{}, error) {
	messageID, err := requirePK(req)
	if err != nil {
		return nil, err
	}
	if _, err := h.messages.Get(ctx, messageID); err != nil {
		return nil, err
	}
	h.hub.SubscribeMessage(client, messageID)
	return pkReply{PK: messageID}, nil
}

func (h *MessageHandler) getUserChatList(ctx context.Context, client *ws.Client) (interface{}, error) {
	list, err := h.chatList.ChatList(ctx, client.UserID)
	if err != nil {
		return nil, err
	}
	return chat.ChatList{ChatList: list}, nil
}

type pkReply struct {
	PK uint `json:"pk"`
}
