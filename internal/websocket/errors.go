package websocket

import "errors"

var (
	ErrClientQueueFull = errors.New("client message queue is full")
	ErrInvalidMessage  = errors.New("invalid message format")
	ErrUnknownAction   = errors.New("unknown action")
	ErrRateLimited     = errors.New("too many requests")
	ErrHubClosed       = errors.New("hub is shutting down")
)
