package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/thereayou/tourism-chat/internal/models"
	"golang.org/x/time/rate"
)

const (
	// Время ожидания записи
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Интервал отправки ping
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер сообщения
	maxMessageSize = 512 * 1024 // 512KB

	sendBufferSize = 256
)

// Handler выполняет действия клиента и очистку при отключении
type Handler interface {
	HandleMessage(ctx context.Context, client *Client, req *Request)
	HandleDisconnect(client *Client)
}

type ClientConfig struct {
	ActionTimeout    time.Duration
	ActionsPerSecond float64
	ActionBurst      int
}

// Client одно аутентифицированное соединение
type Client struct {
	ID     uuid.UUID
	UserID uuid.UUID
	User   *models.User
	Conn   *websocket.Conn
	Send   chan []byte

	hub           *Hub
	limiter       *rate.Limiter
	actionTimeout time.Duration

	mu            sync.Mutex
	roomSubscribe *uint

	// Группы, в которых состоит клиент; меняются только под hub.mu
	rooms    map[uint]struct{}
	messages map[uint]struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, user *models.User, cfg ClientConfig) *Client {
	limit := rate.Inf
	if cfg.ActionsPerSecond > 0 {
		limit = rate.Limit(cfg.ActionsPerSecond)
	}
	burst := cfg.ActionBurst
	if burst <= 0 {
		burst = 1
	}
	timeout := cfg.ActionTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		ID:            uuid.New(),
		UserID:        user.ID,
		User:          user,
		Conn:          conn,
		Send:          make(chan []byte, sendBufferSize),
		hub:           hub,
		limiter:       rate.NewLimiter(limit, burst),
		actionTimeout: timeout,
		rooms:         make(map[uint]struct{}),
	}
}

// RoomSubscribe возвращает комнату, в которую клиент вошёл через join_room
func (c *Client) RoomSubscribe() (uint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.roomSubscribe == nil {
		return 0, false
	}
	return *c.roomSubscribe, true
}

func (c *Client) SetRoomSubscribe(roomID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomSubscribe = &roomID
}

func (c *Client) ClearRoomSubscribe() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomSubscribe = nil
}

// ReadPump читает кадры клиента и по одному передаёт их handler.
// При любом выходе выполняется HandleDisconnect и снятие с регистрации.
func (c *Client) ReadPump(handler Handler) {
	defer func() {
		handler.HandleDisconnect(c)
		c.hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("client_id", c.ID.String()).Msg("websocket read error")
			}
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil || req.Action == "" {
			c.Reply(NewErrorResponse(&req, http.StatusBadRequest, ErrInvalidMessage.Error()))
			continue
		}

		if !c.limiter.Allow() {
			c.Reply(NewErrorResponse(&req, http.StatusTooManyRequests, ErrRateLimited.Error()))
			continue
		}

		c.dispatch(handler, &req)
	}
}

func (c *Client) dispatch(handler Handler, req *Request) {
	ctx, cancel := context.WithTimeout(c.hub.Context(), c.actionTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("client_id", c.ID.String()).
				Str("action", string(req.Action)).
				Msg("action handler panicked")
			c.Reply(NewErrorResponse(req, http.StatusInternalServerError, "internal error"))
		}
	}()

	handler.HandleMessage(ctx, c, req)
}

// WritePump отправляет сообщения клиенту
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub закрыл канал
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// Отправляем все накопившиеся сообщения отдельными кадрами
			n := len(c.Send)
			for i := 0; i < n; i++ {
				next, ok := <-c.Send
				if !ok {
					c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.Conn.WriteMessage(websocket.TextMessage, next); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON кодирует v и ставит его в очередь клиента
func (c *Client) SendJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.hub.Send(c, data)
	return nil
}

func (c *Client) Reply(resp Response) {
	if err := c.SendJSON(resp); err != nil {
		log.Error().Err(err).Str("client_id", c.ID.String()).Str("action", string(resp.Action)).Msg("failed to encode response")
	}
}
