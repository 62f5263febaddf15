package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/tourism-chat/internal/chat"
	"github.com/thereayou/tourism-chat/internal/database"
	"github.com/thereayou/tourism-chat/internal/handlers/dto"
	"github.com/thereayou/tourism-chat/internal/middleware"
)

type HTTPMessageHandler struct {
	db       *database.Database
	registry *chat.Registry
}

func NewHTTPMessageHandler(db *database.Database, registry *chat.Registry) *HTTPMessageHandler {
	return &HTTPMessageHandler{db: db, registry: registry}
}

// GetRoomMessages получает историю сообщений комнаты
func (h *HTTPMessageHandler) GetRoomMessages(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)
	roomID, ok := parseID(c)
	if !ok {
		return
	}

	// Проверяем доступ к комнате
	room, err := h.registry.Resolve(ctx, roomID)
	if err != nil {
		respondError(c, err)
		return
	}

	if room.HostID != userID {
		isMember, err := h.db.IsMember(ctx, userID, roomID)
		if err != nil {
			respondError(c, err)
			return
		}
		if !isMember {
			user, err := h.db.GetUser(ctx, userID)
			if err != nil || !user.IsAdmin() {
				c.JSON(http.StatusForbidden, gin.H{"error": "you are not a member of this room"})
				return
			}
		}
	}

	// Параметры пагинации
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	var beforeID uint
	if before := c.Query("before"); before != "" {
		if id, err := strconv.ParseUint(before, 10, 64); err == nil {
			beforeID = uint(id)
		}
	}

	messages, err := h.db.GetRoomMessages(ctx, roomID, limit, beforeID)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]chat.MessageView, 0, len(messages))
	for i := range messages {
		views = append(views, chat.NewMessageView(&messages[i]))
	}

	c.JSON(http.StatusOK, dto.MessagesResponse{
		Messages: views,
		HasMore:  len(messages) == limit,
	})
}
