package websocket

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/thereayou/tourism-chat/internal/metrics"
)

// subscription показывает, почему клиент состоит в группе комнаты
type subscription uint8

const (
	viaJoin subscription = 1 << iota
	viaSubscribe
)

// Hub хранит подключенных клиентов и группы рассылки:
// группу каждой комнаты и группу каждого отдельного сообщения.
type Hub struct {
	mu sync.RWMutex

	clients map[uuid.UUID]*Client

	roomGroup    map[uint]map[*Client]subscription
	messageGroup map[uint]map[*Client]struct{}

	closed   bool
	sessions sync.WaitGroup

	// Контекст для graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub создает новый Hub
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:      make(map[uuid.UUID]*Client),
		roomGroup:    make(map[uint]map[*Client]subscription),
		messageGroup: make(map[uint]map[*Client]struct{}),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Context отменяется при остановке hub
func (h *Hub) Context() context.Context {
	return h.ctx
}

// Register регистрирует нового клиента
func (h *Hub) Register(client *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	h.clients[client.ID] = client
	h.sessions.Add(1)
	metrics.WsConnections.Inc()

	log.Info().Str("client_id", client.ID.String()).Str("user_id", client.UserID.String()).Msg("client registered")
	return nil
}

// Unregister убирает клиента из всех групп и закрывает его очередь отправки.
// Повторный вызов ничего не делает.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	for roomID := range client.rooms {
		h.removeFromRoomUnsafe(client, roomID)
	}
	for messageID := range client.messages {
		if group, ok := h.messageGroup[messageID]; ok {
			delete(group, client)
			if len(group) == 0 {
				delete(h.messageGroup, messageID)
			}
		}
	}
	client.messages = nil

	delete(h.clients, client.ID)
	close(client.Send)
	metrics.WsConnections.Dec()
	h.sessions.Done()

	log.Info().Str("client_id", client.ID.String()).Str("user_id", client.UserID.String()).Msg("client unregistered")
}

// Stop закрывает все соединения и ждёт, пока каждая сессия выполнит
// очистку при отключении, или пока не истечёт ctx.
func (h *Hub) Stop(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	conns := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		conns = append(conns, client)
	}
	h.mu.Unlock()

	h.cancel()
	for _, client := range conns {
		if client.Conn != nil {
			client.Conn.Close()
		}
	}

	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// JoinRoomGroup добавляет клиента в группу комнаты как участника
func (h *Hub) JoinRoomGroup(client *Client, roomID uint) {
	h.addToRoom(client, roomID, viaJoin)
}

// LeaveRoomGroup убирает участие; явная подписка на комнату сохраняется
func (h *Hub) LeaveRoomGroup(client *Client, roomID uint) {
	h.dropFromRoom(client, roomID, viaJoin)
}

// SubscribeRoom подписывает клиента на события комнаты без входа в неё
func (h *Hub) SubscribeRoom(client *Client, roomID uint) {
	h.addToRoom(client, roomID, viaSubscribe)
}

func (h *Hub) UnsubscribeRoom(client *Client, roomID uint) {
	h.dropFromRoom(client, roomID, viaSubscribe)
}

func (h *Hub) addToRoom(client *Client, roomID uint, via subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	group, ok := h.roomGroup[roomID]
	if !ok {
		group = make(map[*Client]subscription)
		h.roomGroup[roomID] = group
	}
	group[client] |= via
	client.rooms[roomID] = struct{}{}
}

func (h *Hub) dropFromRoom(client *Client, roomID uint, via subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.roomGroup[roomID]
	if !ok {
		return
	}
	sub, ok := group[client]
	if !ok {
		return
	}
	sub &^= via
	if sub != 0 {
		group[client] = sub
		return
	}
	h.removeFromRoomUnsafe(client, roomID)
}

func (h *Hub) removeFromRoomUnsafe(client *Client, roomID uint) {
	if group, ok := h.roomGroup[roomID]; ok {
		delete(group, client)
		if len(group) == 0 {
			delete(h.roomGroup, roomID)
		}
	}
	delete(client.rooms, roomID)
}

// DropRoomGroup распускает группу удалённой комнаты и возвращает её бывших участников
func (h *Hub) DropRoomGroup(roomID uint) []*Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	group := h.roomGroup[roomID]
	clients := make([]*Client, 0, len(group))
	for client := range group {
		delete(client.rooms, roomID)
		clients = append(clients, client)
	}
	delete(h.roomGroup, roomID)
	return clients
}

// SubscribeMessage добавляет клиента в группу отдельного сообщения
func (h *Hub) SubscribeMessage(client *Client, messageID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	group, ok := h.messageGroup[messageID]
	if !ok {
		group = make(map[*Client]struct{})
		h.messageGroup[messageID] = group
	}
	group[client] = struct{}{}
	if client.messages == nil {
		client.messages = make(map[uint]struct{})
	}
	client.messages[messageID] = struct{}{}
}

// DropMessageGroup удаляет группу сообщения после его удаления
func (h *Hub) DropMessageGroup(messageID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.messageGroup[messageID] {
		delete(client.messages, messageID)
	}
	delete(h.messageGroup, messageID)
}

// SendToRoom отправляет сообщение в группу комнаты
func (h *Hub) SendToRoom(roomID uint, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.roomGroup[roomID] {
		h.deliver(client, message)
	}
}

// BroadcastMessageEvent отправляет событие группе комнаты и группе сообщения.
// Клиент, состоящий в обеих, получает событие один раз.
func (h *Hub) BroadcastMessageEvent(roomID, messageID uint, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room := h.roomGroup[roomID]
	for client := range room {
		h.deliver(client, message)
	}
	for client := range h.messageGroup[messageID] {
		if _, seen := room[client]; seen {
			continue
		}
		h.deliver(client, message)
	}
}

// Send отправляет кадр одному клиенту
func (h *Hub) Send(client *Client, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	h.deliver(client, message)
}

// deliver вызывается под h.mu, поэтому Send ещё не закрыт
func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		metrics.BroadcastDropped.Inc()
		log.Warn().Err(ErrClientQueueFull).Str("client_id", client.ID.String()).Msg("frame dropped")
	}
}

// RoomClientCount возвращает число соединений в группе комнаты
func (h *Hub) RoomClientCount(roomID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.roomGroup[roomID])
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
