package websocket

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/tourism-chat/internal/models"
)

func newTestClient(t *testing.T, hub *Hub) *Client {
	t.Helper()
	c := NewClient(hub, nil, &models.User{ID: uuid.New(), Username: "u"}, ClientConfig{})
	require.NoError(t, hub.Register(c))
	return c
}

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestHub_BroadcastMessageEventDedupes(t *testing.T) {
	hub := NewHub()
	inBoth := newTestClient(t, hub)
	roomOnly := newTestClient(t, hub)
	messageOnly := newTestClient(t, hub)
	outsider := newTestClient(t, hub)

	hub.JoinRoomGroup(inBoth, 5)
	hub.SubscribeMessage(inBoth, 42)
	hub.SubscribeRoom(roomOnly, 5)
	hub.SubscribeMessage(messageOnly, 42)
	hub.SubscribeRoom(outsider, 6)

	hub.BroadcastMessageEvent(5, 42, []byte("event"))

	assert.Len(t, drain(inBoth), 1)
	assert.Len(t, drain(roomOnly), 1)
	assert.Len(t, drain(messageOnly), 1)
	assert.Empty(t, drain(outsider))
}

func TestHub_LeaveKeepsExplicitSubscription(t *testing.T) {
	hub := NewHub()
	c := newTestClient(t, hub)

	hub.JoinRoomGroup(c, 5)
	hub.SubscribeRoom(c, 5)
	hub.LeaveRoomGroup(c, 5)
	assert.Equal(t, 1, hub.RoomClientCount(5))

	hub.UnsubscribeRoom(c, 5)
	assert.Equal(t, 0, hub.RoomClientCount(5))

	hub.JoinRoomGroup(c, 7)
	hub.LeaveRoomGroup(c, 7)
	hub.LeaveRoomGroup(c, 7)
	assert.Equal(t, 0, hub.RoomClientCount(7))
}

func TestHub_DropMessageGroup(t *testing.T) {
	hub := NewHub()
	c := newTestClient(t, hub)

	hub.SubscribeMessage(c, 9)
	hub.DropMessageGroup(9)
	hub.BroadcastMessageEvent(1, 9, []byte("late"))

	assert.Empty(t, drain(c))
}

func TestHub_FullBufferDropsOnlyThatRecipient(t *testing.T) {
	hub := NewHub()
	slow := newTestClient(t, hub)
	fast := newTestClient(t, hub)
	hub.JoinRoomGroup(slow, 1)
	hub.JoinRoomGroup(fast, 1)

	for i := 0; i < sendBufferSize; i++ {
		slow.Send <- []byte("filler")
	}

	var logs bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&logs)
	defer func() { log.Logger = prev }()

	hub.SendToRoom(1, []byte("presence"))

	assert.Len(t, drain(fast), 1)
	assert.Len(t, drain(slow), sendBufferSize)
	assert.Contains(t, logs.String(), ErrClientQueueFull.Error())
	assert.Contains(t, logs.String(), slow.ID.String())
}

func TestHub_DropRoomGroup(t *testing.T) {
	hub := NewHub()
	member := newTestClient(t, hub)
	watcher := newTestClient(t, hub)
	other := newTestClient(t, hub)
	hub.JoinRoomGroup(member, 1)
	hub.SubscribeRoom(watcher, 1)
	hub.JoinRoomGroup(other, 2)

	dropped := hub.DropRoomGroup(1)

	assert.ElementsMatch(t, []*Client{member, watcher}, dropped)
	assert.Equal(t, 0, hub.RoomClientCount(1))
	assert.Equal(t, 1, hub.RoomClientCount(2))
	assert.NotContains(t, member.rooms, uint(1))

	hub.SendToRoom(1, []byte("late"))
	assert.Empty(t, drain(member))

	// повторный вход в ту же комнату работает с чистой группой
	hub.JoinRoomGroup(member, 1)
	assert.Equal(t, 1, hub.RoomClientCount(1))
	hub.Unregister(member)
	assert.Equal(t, 0, hub.RoomClientCount(1))
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	hub := NewHub()
	c := newTestClient(t, hub)
	hub.JoinRoomGroup(c, 3)
	hub.SubscribeMessage(c, 4)

	hub.Unregister(c)
	hub.Unregister(c)

	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, hub.RoomClientCount(3))
	_, ok := <-c.Send
	assert.False(t, ok, "send channel closed")

	hub.SendToRoom(3, []byte("x"))
	hub.BroadcastMessageEvent(3, 4, []byte("x"))
	hub.Send(c, []byte("x"))
}

func TestHub_StopWaitsForSessions(t *testing.T) {
	hub := NewHub()
	c := newTestClient(t, hub)

	go func() {
		<-hub.Context().Done()
		time.Sleep(20 * time.Millisecond)
		hub.Unregister(c)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, hub.Stop(ctx))
	assert.Equal(t, 0, hub.ClientCount())

	err := hub.Register(NewClient(hub, nil, &models.User{ID: uuid.New()}, ClientConfig{}))
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestHub_StopTimesOut(t *testing.T) {
	hub := NewHub()
	newTestClient(t, hub)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, hub.Stop(ctx), context.DeadlineExceeded)
}

func TestClient_RoomSubscribe(t *testing.T) {
	c := NewClient(NewHub(), nil, &models.User{ID: uuid.New()}, ClientConfig{})

	_, ok := c.RoomSubscribe()
	assert.False(t, ok)

	c.SetRoomSubscribe(5)
	room, ok := c.RoomSubscribe()
	assert.True(t, ok)
	assert.Equal(t, uint(5), room)

	c.ClearRoomSubscribe()
	_, ok = c.RoomSubscribe()
	assert.False(t, ok)
}
