package websocket

import (
	"encoding/json"
	"net/http"
)

// Action определяет действие, запрошенное клиентом
type Action string

const (
	ActionJoinRoom         Action = "join_room"
	ActionLeaveRoom        Action = "leave_room"
	ActionCreateMessage    Action = "create_message"
	ActionDeleteMessage    Action = "delete_message"
	ActionSubscribeRoom    Action = "subscribe_to_messages_in_room"
	ActionUnsubscribeRoom  Action = "unsubscribe_from_messages_in_room"
	ActionSubscribeMessage Action = "subscribe_to_message"
	ActionGetUserChatList  Action = "get_user_chat_list"
)

type FilePayload struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Request входящий кадр от клиента
type Request struct {
	Action    Action          `json:"action"`
	RequestID json.RawMessage `json:"request_id,omitempty"`
	PK        *uint           `json:"pk,omitempty"`
	Message   string          `json:"message,omitempty"`
	File      *FilePayload    `json:"file,omitempty"`
}

// Response ответ на конкретный запрос клиента
type Response struct {
	Action         Action          `json:"action"`
	RequestID      json.RawMessage `json:"request_id,omitempty"`
	ResponseStatus int             `json:"response_status"`
	Errors         []string        `json:"errors"`
	Data           interface{}     `json:"data,omitempty"`
}

func NewResponse(req *Request, data interface{}) Response {
	return Response{
		Action:         req.Action,
		RequestID:      req.RequestID,
		ResponseStatus: http.StatusOK,
		Errors:         []string{},
		Data:           data,
	}
}

func NewErrorResponse(req *Request, status int, msg string) Response {
	return Response{
		Action:         req.Action,
		RequestID:      req.RequestID,
		ResponseStatus: status,
		Errors:         []string{msg},
	}
}
