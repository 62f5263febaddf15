package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/thereayou/tourism-chat/internal/database"
	"github.com/thereayou/tourism-chat/internal/middleware"
	ws "github.com/thereayou/tourism-chat/internal/websocket"
)

// WebSocketHandler управляет WebSocket соединениями
type WebSocketHandler struct {
	db             *database.Database
	hub            *ws.Hub
	messageHandler *MessageHandler
	clientConfig   ws.ClientConfig
	upgrader       websocket.Upgrader
}

// NewWebSocketHandler создает новый WebSocket handler
func NewWebSocketHandler(db *database.Database, hub *ws.Hub, messageHandler *MessageHandler, cfg ws.ClientConfig, env string, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		db:             db,
		hub:            hub,
		messageHandler: messageHandler,
		clientConfig:   cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(env, allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

// HandleWebSocket обрабатывает WebSocket соединения.
// Пользователь проверяется до upgrade, чтобы отказ пришёл обычным HTTP ответом.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := middleware.GetUserID(c)

	user, err := h.db.GetUser(c.Request.Context(), userID)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			log.Error().Err(err).Str("user_id", userID.String()).Msg("load websocket user")
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if user.Blocked {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user is blocked"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn, user, h.clientConfig)
	if err := h.hub.Register(client); err != nil {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(h.messageHandler)
}
