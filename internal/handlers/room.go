package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/thereayou/tourism-chat/internal/chat"
	"github.com/thereayou/tourism-chat/internal/database"
	"github.com/thereayou/tourism-chat/internal/handlers/dto"
	"github.com/thereayou/tourism-chat/internal/middleware"
	"github.com/thereayou/tourism-chat/internal/presence"
)

type RoomHandler struct {
	db       *database.Database
	registry *chat.Registry
	presence *presence.Tracker
	chatList *chat.ChatListProjector
}

func NewRoomHandler(db *database.Database, registry *chat.Registry, tracker *presence.Tracker, chatList *chat.ChatListProjector) *RoomHandler {
	return &RoomHandler{db: db, registry: registry, presence: tracker, chatList: chatList}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func respondError(c *gin.Context, err error) {
	status, msg := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": msg})
}

// CreateRoom создает комнату для произвольного чата, создатель становится хозяином
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.registry.CreateRoom(c.Request.Context(), req.Name, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	// Хозяин сразу видит комнату в своём списке чатов
	if err := h.db.EnsureMembership(c.Request.Context(), userID, room.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, chat.NewRoomView(room, nil))
}

// GetRoom возвращает комнату и пользователей, которые сейчас в ней
func (h *RoomHandler) GetRoom(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	room, err := h.registry.Resolve(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, chat.NewRoomView(room, h.presence.Current(room.ID)))
}

// DeleteRoom удаляет комнату; разрешено хозяину и администратору
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	actor, err := h.db.GetUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	room, err := h.registry.Resolve(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if room.HostID != actor.ID && !actor.IsAdmin() {
		respondError(c, chat.ErrForbidden)
		return
	}

	if err := h.registry.DeleteRoom(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetChatList список чатов пользователя с последними сообщениями
func (h *RoomHandler) GetChatList(c *gin.Context) {
	list, err := h.chatList.ChatList(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ChatListResponse{ChatList: list})
}
