package chat

import "errors"

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrMessageNotFound   = errors.New("message not found")
	ErrNoActiveRoom      = errors.New("no active room")
	ErrEmptyMessage      = errors.New("message is empty")
	ErrMessageTooLong    = errors.New("message is too long")
	ErrInvalidAttachment = errors.New("invalid attachment")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidRoomName   = errors.New("invalid room name")
	ErrRoomNameTaken     = errors.New("room name already taken")
)
