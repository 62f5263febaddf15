package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/tourism-chat/internal/config"
	"github.com/thereayou/tourism-chat/internal/models"
	"github.com/thereayou/tourism-chat/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	srv *Server
	ts  *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.OpenDB(t)
	cfg := config.Config{
		Env:                "test",
		JWTSecret:          "test-secret",
		TokenTTL:           time.Hour,
		MaxMessageLength:   50,
		UploadDir:          t.TempDir(),
		MaxAttachmentBytes: 1024,
		HTTPRateLimit:      1000,
		HTTPRateBurst:      1000,
		WSActionsPerSecond: 1000,
		WSActionBurst:      1000,
		WSActionTimeout:    5 * time.Second,
	}
	srv, err := newServer(cfg, db, testutil.NewBlacklist())
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Router)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Hub.Stop(ctx)
		ts.Close()
		srv.limiter.Stop()
	})
	return &testEnv{srv: srv, ts: ts}
}

func (e *testEnv) token(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := e.srv.JWTManager.Generate(user.ID)
	require.NoError(t, err)
	return token
}

func (e *testEnv) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/ws/chat/?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type frame map[string]json.RawMessage

func (f frame) str(key string) string {
	var s string
	_ = json.Unmarshal(f[key], &s)
	return s
}

func (f frame) num(key string) int {
	var n int
	_ = json.Unmarshal(f[key], &n)
	return n
}

func (f frame) isReply() bool {
	_, ok := f["response_status"]
	return ok
}

func (f frame) users(t *testing.T) []string {
	t.Helper()
	var payload struct {
		Users []struct {
			Username string `json:"username"`
		} `json:"users"`
	}
	require.NoError(t, json.Unmarshal(mustJSON(t, f), &payload))
	names := make([]string, 0, len(payload.Users))
	for _, u := range payload.Users {
		names = append(names, u.Username)
	}
	return names
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

// readReply пропускает рассылки до ответа на action
func readReply(t *testing.T, conn *websocket.Conn, action string) frame {
	t.Helper()
	for i := 0; i < 20; i++ {
		f := readFrame(t, conn)
		if f.isReply() && f.str("action") == action {
			return f
		}
	}
	t.Fatalf("no reply for %s", action)
	return nil
}

func send(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func TestWebSocket_RefusesBadTokens(t *testing.T) {
	env := newTestEnv(t)
	blocked := testutil.CreateUser(t, env.srv.DB, "blocked", models.RoleUser)
	blocked.Blocked = true
	require.NoError(t, env.srv.DB.UpdateUser(context.Background(), blocked))

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not-a-jwt"},
		{"unknown user", env.token(t, &models.User{ID: uuid.New()})},
		{"blocked user", env.token(t, blocked)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/ws/chat/?token=" + tt.token
			_, resp, err := websocket.DefaultDialer.Dial(url, nil)
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
	assert.Equal(t, 0, env.srv.Hub.ClientCount())
}

func TestWebSocket_PresenceMessageOrdering(t *testing.T) {
	env := newTestEnv(t)
	host := testutil.CreateUser(t, env.srv.DB, "host", models.RolePartner)
	u := testutil.CreateUser(t, env.srv.DB, "ulyana", models.RoleUser)
	v := testutil.CreateUser(t, env.srv.DB, "vadim", models.RoleUser)
	room := testutil.CreateRoom(t, env.srv.DB, "hotel_5", host)

	vConn := env.dial(t, env.token(t, v))
	send(t, vConn, map[string]interface{}{"action": "subscribe_to_messages_in_room", "pk": room.ID})
	assert.Equal(t, http.StatusOK, readReply(t, vConn, "subscribe_to_messages_in_room").num("response_status"))

	uConn := env.dial(t, env.token(t, u))
	send(t, uConn, map[string]interface{}{"action": "join_room", "pk": room.ID, "request_id": 1})
	joined := readReply(t, uConn, "join_room")
	assert.Equal(t, http.StatusOK, joined.num("response_status"))
	assert.Equal(t, "1", string(joined["request_id"]))
	var joinedRoom struct {
		ID           uint `json:"id"`
		CurrentUsers []struct {
			Username string `json:"username"`
		} `json:"current_users"`
	}
	require.NoError(t, json.Unmarshal(joined["data"], &joinedRoom))
	assert.Equal(t, room.ID, joinedRoom.ID)
	require.Len(t, joinedRoom.CurrentUsers, 1)
	assert.Equal(t, "ulyana", joinedRoom.CurrentUsers[0].Username)

	send(t, uConn, map[string]interface{}{"action": "create_message", "message": "hi"})
	assert.Equal(t, http.StatusOK, readReply(t, uConn, "create_message").num("response_status"))
	require.NoError(t, uConn.Close())

	first := readFrame(t, vConn)
	assert.Equal(t, []string{"ulyana"}, first.users(t))

	second := readFrame(t, vConn)
	assert.Equal(t, "create", second.str("action"))
	var event struct {
		Data struct {
			Text string `json:"text"`
			Room uint   `json:"room"`
			User struct {
				Username string `json:"username"`
			} `json:"user"`
			CreatedAtFormatted string `json:"created_at_formatted"`
		} `json:"data"`
		PK uint `json:"pk"`
	}
	require.NoError(t, json.Unmarshal(mustJSON(t, second), &event))
	assert.Equal(t, "hi", event.Data.Text)
	assert.Equal(t, room.ID, event.Data.Room)
	assert.Equal(t, "ulyana", event.Data.User.Username)
	assert.NotEmpty(t, event.Data.CreatedAtFormatted)
	assert.NotZero(t, event.PK)

	third := readFrame(t, vConn)
	assert.Empty(t, third.users(t))
}

func TestWebSocket_MembershipSurvivesDisconnect(t *testing.T) {
	env := newTestEnv(t)
	host := testutil.CreateUser(t, env.srv.DB, "host", models.RolePartner)
	u := testutil.CreateUser(t, env.srv.DB, "user", models.RoleUser)
	roomA := testutil.CreateRoom(t, env.srv.DB, "hotel_1", host)
	roomB := testutil.CreateRoom(t, env.srv.DB, "restaurant_2", host)

	conn := env.dial(t, env.token(t, u))
	send(t, conn, map[string]interface{}{"action": "join_room", "pk": roomA.ID})
	readReply(t, conn, "join_room")
	send(t, conn, map[string]interface{}{"action": "create_message", "message": "first"})
	readReply(t, conn, "create_message")
	send(t, conn, map[string]interface{}{"action": "create_message", "message": "second"})
	readReply(t, conn, "create_message")
	send(t, conn, map[string]interface{}{"action": "join_room", "pk": roomB.ID})
	readReply(t, conn, "join_room")
	require.NoError(t, conn.Close())

	conn = env.dial(t, env.token(t, u))
	send(t, conn, map[string]interface{}{"action": "get_user_chat_list"})
	reply := readReply(t, conn, "get_user_chat_list")
	require.Equal(t, http.StatusOK, reply.num("response_status"))

	var data struct {
		ChatList []struct {
			RoomID      uint    `json:"room_id"`
			RoomName    string  `json:"room_name"`
			LastMessage *string `json:"last_message"`
		} `json:"chat_list"`
	}
	require.NoError(t, json.Unmarshal(reply["data"], &data))
	require.Len(t, data.ChatList, 2)
	assert.Equal(t, roomA.ID, data.ChatList[0].RoomID)
	require.NotNil(t, data.ChatList[0].LastMessage)
	assert.Equal(t, "second", *data.ChatList[0].LastMessage)
	assert.Equal(t, "restaurant_2", data.ChatList[1].RoomName)
	assert.Nil(t, data.ChatList[1].LastMessage)
}

func TestWebSocket_JoinSwitchesRoom(t *testing.T) {
	env := newTestEnv(t)
	host := testutil.CreateUser(t, env.srv.DB, "host", models.RolePartner)
	u := testutil.CreateUser(t, env.srv.DB, "user", models.RoleUser)
	watcher := testutil.CreateUser(t, env.srv.DB, "watcher", models.RoleUser)
	roomA := testutil.CreateRoom(t, env.srv.DB, "hotel_1", host)
	roomB := testutil.CreateRoom(t, env.srv.DB, "hotel_2", host)

	wConn := env.dial(t, env.token(t, watcher))
	send(t, wConn, map[string]interface{}{"action": "subscribe_to_messages_in_room", "pk": roomA.ID})
	readReply(t, wConn, "subscribe_to_messages_in_room")

	conn := env.dial(t, env.token(t, u))
	send(t, conn, map[string]interface{}{"action": "join_room", "pk": roomA.ID})
	readReply(t, conn, "join_room")
	assert.Equal(t, []string{"user"}, readFrame(t, wConn).users(t))

	send(t, conn, map[string]interface{}{"action": "join_room", "pk": roomB.ID})
	readReply(t, conn, "join_room")
	assert.Empty(t, readFrame(t, wConn).users(t), "switching rooms leaves the previous one")

	// Сообщение уходит в текущую комнату
	send(t, conn, map[string]interface{}{"action": "create_message", "message": "in B"})
	readReply(t, conn, "create_message")
	assert.Equal(t, 1, env.srv.Hub.RoomClientCount(roomA.ID), "only the watcher stays in A")
	assert.Equal(t, 1, env.srv.Hub.RoomClientCount(roomB.ID))
}

func TestWebSocket_LeaveRoomBroadcastsAndIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	host := testutil.CreateUser(t, env.srv.DB, "host", models.RolePartner)
	u := testutil.CreateUser(t, env.srv.DB, "user", models.RoleUser)
	room := testutil.CreateRoom(t, env.srv.DB, "hotel_1", host)

	hostConn := env.dial(t, env.token(t, host))
	send(t, hostConn, map[string]interface{}{"action": "join_room", "pk": room.ID})
	readReply(t, hostConn, "join_room")

	conn := env.dial(t, env.token(t, u))
	send(t, conn, map[string]interface{}{"action": "join_room", "pk": room.ID})
	readReply(t, conn, "join_room")
	assert.Equal(t, []string{"host", "user"}, readFrame(t, hostConn).users(t))

	send(t, conn, map[string]interface{}{"action": "leave_room", "pk": room.ID})
	assert.Equal(t, http.StatusOK, readReply(t, conn, "leave_room").num("response_status"))
	assert.Equal(t, []string{"host"}, readFrame(t, hostConn).users(t))

	send(t, conn, map[string]interface{}{"action": "leave_room", "pk": room.ID})
	assert.Equal(t, http.StatusOK, readReply(t, conn, "leave_room").num("response_status"))

	send(t, conn, map[string]interface{}{"action": "create_message", "message": "ghost"})
	reply := readReply(t, conn, "create_message")
	assert.Equal(t, http.StatusBadRequest, reply.num("response_status"))
	assert.Contains(t, string(reply["errors"]), "no active room")
}

func TestWebSocket_DeleteTwice(t *testing.T) {
	env := newTestEnv(t)
	host := testutil.CreateUser(t, env.srv.DB, "host", models.RolePartner)
	u := testutil.CreateUser(t, env.srv.DB, "user", models.RoleUser)
	v := testutil.CreateUser(t, env.srv.DB, "viewer", models.RoleUser)
	room := testutil.CreateRoom(t, env.srv.DB, "hotel_1", host)

	conn := env.dial(t, env.token(t, u))
	send(t, conn, map[string]interface{}{"action": "join_room", "pk": room.ID})
	readReply(t, conn, "join_room")
	send(t, conn, map[string]interface{}{"action": "create_message", "message": "oops"})
	created := readReply(t, conn, "create_message")
	var msg struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(created["data"], &msg))

	vConn := env.dial(t, env.token(t, v))
	send(t, vConn, map[string]interface{}{"action": "subscribe_to_message", "pk": msg.ID})
	assert.Equal(t, http.StatusOK, readReply(t, vConn, "subscribe_to_message").num("response_status"))

	send(t, conn, map[string]interface{}{"action": "delete_message", "pk": msg.ID})
	assert.Equal(t, http.StatusOK, readReply(t, conn, "delete_message").num("response_status"))
	send(t, conn, map[string]interface{}{"action": "delete_message", "pk": msg.ID})
	assert.Equal(t, http.StatusNotFound, readReply(t, conn, "delete_message").num("response_status"))

	deleted := readFrame(t, vConn)
	assert.Equal(t, "delete", deleted.str("action"))
	assert.Equal(t, int(msg.ID), deleted.num("pk"))

	// После удаления группа сообщения снята: следующий кадр наблюдателя только ответ
	send(t, vConn, map[string]interface{}{"action": "subscribe_to_message", "pk": msg.ID})
	assert.Equal(t, http.StatusNotFound, readFrame(t, vConn).num("response_status"))
}

func TestWebSocket_Validation(t *testing.T) {
	env := newTestEnv(t)
	host := testutil.CreateUser(t, env.srv.DB, "host", models.RolePartner)
	stranger := testutil.CreateUser(t, env.srv.DB, "stranger", models.RoleUser)
	room := testutil.CreateRoom(t, env.srv.DB, "hotel_1", host)

	conn := env.dial(t, env.token(t, host))
	send(t, conn, map[string]interface{}{"action": "join_room", "pk": room.ID})
	readReply(t, conn, "join_room")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, http.StatusBadRequest, readFrame(t, conn).num("response_status"))

	tests := []struct {
		name   string
		req    map[string]interface{}
		status int
	}{
		{"unknown action", map[string]interface{}{"action": "dance"}, http.StatusBadRequest},
		{"missing pk", map[string]interface{}{"action": "join_room"}, http.StatusBadRequest},
		{"unknown room", map[string]interface{}{"action": "join_room", "pk": 999}, http.StatusNotFound},
		{"unknown message", map[string]interface{}{"action": "delete_message", "pk": 999}, http.StatusNotFound},
		{"too long", map[string]interface{}{"action": "create_message", "message": strings.Repeat("a", 51)}, http.StatusBadRequest},
		{"empty", map[string]interface{}{"action": "create_message", "message": " "}, http.StatusBadRequest},
		{"bad file", map[string]interface{}{"action": "create_message", "file": map[string]string{"name": "a.png", "content": "***"}}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(t, conn, tt.req)
			reply := readReply(t, conn, tt.req["action"].(string))
			assert.Equal(t, tt.status, reply.num("response_status"))
		})
	}

	send(t, conn, map[string]interface{}{"action": "join_room", "pk": room.ID})
	readReply(t, conn, "join_room")
	send(t, conn, map[string]interface{}{"action": "create_message", "message": "mine"})
	created := readReply(t, conn, "create_message")
	var msg struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(created["data"], &msg))

	sConn := env.dial(t, env.token(t, stranger))
	send(t, sConn, map[string]interface{}{"action": "delete_message", "pk": msg.ID})
	assert.Equal(t, http.StatusForbidden, readReply(t, sConn, "delete_message").num("response_status"))
}

func TestWebSocket_Attachment(t *testing.T) {
	env := newTestEnv(t)
	host := testutil.CreateUser(t, env.srv.DB, "host", models.RolePartner)
	room := testutil.CreateRoom(t, env.srv.DB, "hotel_1", host)

	conn := env.dial(t, env.token(t, host))
	send(t, conn, map[string]interface{}{"action": "join_room", "pk": room.ID})
	readReply(t, conn, "join_room")

	content := base64.StdEncoding.EncodeToString([]byte("hello file"))
	send(t, conn, map[string]interface{}{
		"action": "create_message",
		"file":   map[string]string{"name": "note.txt", "content": content},
	})
	reply := readReply(t, conn, "create_message")
	require.Equal(t, http.StatusOK, reply.num("response_status"))

	var msg struct {
		File *string `json:"file"`
	}
	require.NoError(t, json.Unmarshal(reply["data"], &msg))
	require.NotNil(t, msg.File)

	resp, err := http.Get(env.ts.URL + "/" + *msg.File)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebSocket_RoomDeletionReleasesLiveState(t *testing.T) {
	env := newTestEnv(t)
	host := testutil.CreateUser(t, env.srv.DB, "host", models.RolePartner)
	u := testutil.CreateUser(t, env.srv.DB, "user", models.RoleUser)
	room := testutil.CreateRoom(t, env.srv.DB, "hotel_1", host)

	conn := env.dial(t, env.token(t, u))
	send(t, conn, map[string]interface{}{"action": "join_room", "pk": room.ID})
	readReply(t, conn, "join_room")
	require.Equal(t, 1, env.srv.Hub.RoomClientCount(room.ID))

	resp := doJSON(t, http.MethodDelete, env.ts.URL+"/api/v1/rooms/"+itoa(room.ID), env.token(t, host), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Empty(t, readFrame(t, conn).users(t))
	assert.Equal(t, 0, env.srv.Hub.RoomClientCount(room.ID))

	send(t, conn, map[string]interface{}{"action": "create_message", "message": "anyone?"})
	reply := readReply(t, conn, "create_message")
	assert.Equal(t, http.StatusBadRequest, reply.num("response_status"))
	assert.Contains(t, string(reply["errors"]), "no active room")
}

func TestWebSocket_ConcurrentJoinsEndWithFullRoster(t *testing.T) {
	env := newTestEnv(t)
	host := testutil.CreateUser(t, env.srv.DB, "host", models.RolePartner)
	room := testutil.CreateRoom(t, env.srv.DB, "hotel_1", host)

	watcher := env.dial(t, env.token(t, host))
	send(t, watcher, map[string]interface{}{"action": "subscribe_to_messages_in_room", "pk": room.ID})
	readReply(t, watcher, "subscribe_to_messages_in_room")

	const joiners = 6
	conns := make([]*websocket.Conn, joiners)
	for i := range conns {
		user := testutil.CreateUser(t, env.srv.DB, fmt.Sprintf("guest%d", i), models.RoleUser)
		conns[i] = env.dial(t, env.token(t, user))
	}
	for _, conn := range conns {
		send(t, conn, map[string]interface{}{"action": "join_room", "pk": room.ID})
	}
	for _, conn := range conns {
		readReply(t, conn, "join_room")
	}

	var last []string
	for i := 0; i < joiners; i++ {
		last = readFrame(t, watcher).users(t)
	}
	assert.Len(t, last, joiners, "the final presence frame lists every joiner")
}

func TestServer_ShutdownRunsDisconnectCleanup(t *testing.T) {
	env := newTestEnv(t)
	host := testutil.CreateUser(t, env.srv.DB, "host", models.RolePartner)
	room := testutil.CreateRoom(t, env.srv.DB, "hotel_1", host)

	conn := env.dial(t, env.token(t, host))
	send(t, conn, map[string]interface{}{"action": "join_room", "pk": room.ID})
	readReply(t, conn, "join_room")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, env.srv.Hub.Stop(ctx))
	assert.Equal(t, 0, env.srv.Hub.ClientCount())
	assert.Equal(t, 0, env.srv.Hub.RoomClientCount(room.ID))
}

func doJSON(t *testing.T, method, url, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHTTP_AuthFlow(t *testing.T) {
	env := newTestEnv(t)

	resp := doJSON(t, http.MethodPost, env.ts.URL+"/auth/register", "", map[string]string{
		"username": "partner", "email": "p@example.com", "password": "supersecret", "role": "partner",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, env.ts.URL+"/auth/register", "", map[string]string{
		"username": "partner", "email": "p@example.com", "password": "supersecret",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, env.ts.URL+"/auth/login", "", map[string]string{
		"email": "p@example.com", "password": "wrongpass",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, env.ts.URL+"/auth/login", "", map[string]string{
		"email": "p@example.com", "password": "supersecret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))

	resp = doJSON(t, http.MethodGet, env.ts.URL+"/api/v1/users/me", login.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me struct {
		Username string `json:"username"`
		Role     int    `json:"role"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	assert.Equal(t, "partner", me.Username)
	assert.Equal(t, int(models.RolePartner), me.Role)

	resp = doJSON(t, http.MethodPost, env.ts.URL+"/auth/logout", login.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, env.ts.URL+"/api/v1/users/me", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	url := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/ws/chat/?token=" + login.Token
	_, wsResp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, wsResp.StatusCode)
}

func TestHTTP_ListingRoomLifecycle(t *testing.T) {
	env := newTestEnv(t)
	partner := testutil.CreateUser(t, env.srv.DB, "partner", models.RolePartner)
	guest := testutil.CreateUser(t, env.srv.DB, "guest", models.RoleUser)
	partnerToken := env.token(t, partner)
	guestToken := env.token(t, guest)

	resp := doJSON(t, http.MethodPost, env.ts.URL+"/api/v1/listings", guestToken, map[string]string{"kind": "hotel", "title": "Nope"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, env.ts.URL+"/api/v1/listings", partnerToken, map[string]string{"kind": "hotel", "title": "Sea View"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var listing models.Listing
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	require.NotNil(t, listing.ChatRoomID)

	roomURL := env.ts.URL + "/api/v1/rooms/" + itoa(*listing.ChatRoomID)
	resp = doJSON(t, http.MethodGet, roomURL, guestToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var room struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&room))
	assert.Equal(t, "hotel_"+itoa(listing.ID), room.Name)

	resp = doJSON(t, http.MethodGet, roomURL+"/messages", guestToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "history is for members only")

	resp = doJSON(t, http.MethodPost, env.ts.URL+"/api/v1/listings/"+itoa(listing.ID)+"/reviews", guestToken, map[string]interface{}{"rating": 4})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, env.ts.URL+"/api/v1/listings/"+itoa(listing.ID), partnerToken, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, roomURL, guestToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTP_RoomHistoryAndChatList(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.srv.DB, "user", models.RoleUser)
	token := env.token(t, user)

	resp := doJSON(t, http.MethodPost, env.ts.URL+"/api/v1/rooms", token, map[string]string{"name": "friends"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var room struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&room))

	conn := env.dial(t, token)
	send(t, conn, map[string]interface{}{"action": "join_room", "pk": room.ID})
	readReply(t, conn, "join_room")
	for _, text := range []string{"one", "two", "three"} {
		send(t, conn, map[string]interface{}{"action": "create_message", "message": text})
		readReply(t, conn, "create_message")
	}

	resp = doJSON(t, http.MethodGet, env.ts.URL+"/api/v1/rooms/"+itoa(room.ID)+"/messages?limit=2", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history struct {
		Messages []struct {
			Text string `json:"text"`
		} `json:"messages"`
		HasMore bool `json:"has_more"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "two", history.Messages[0].Text)
	assert.Equal(t, "three", history.Messages[1].Text)
	assert.True(t, history.HasMore)

	resp = doJSON(t, http.MethodGet, env.ts.URL+"/api/v1/chats", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		ChatList []struct {
			RoomName    string  `json:"room_name"`
			LastMessage *string `json:"last_message"`
		} `json:"chat_list"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list.ChatList, 1)
	assert.Equal(t, "friends", list.ChatList[0].RoomName)
	require.NotNil(t, list.ChatList[0].LastMessage)
	assert.Equal(t, "three", *list.ChatList[0].LastMessage)
}

func TestHTTP_HealthzAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp := doJSON(t, http.MethodGet, env.ts.URL+"/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, env.ts.URL+"/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func itoa(n uint) string {
	return strconv.FormatUint(uint64(n), 10)
}
