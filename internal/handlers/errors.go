package handlers

import (
	"errors"
	"net/http"

	"github.com/thereayou/tourism-chat/internal/chat"
	"github.com/thereayou/tourism-chat/internal/listings"
	ws "github.com/thereayou/tourism-chat/internal/websocket"
)

var errBlockedUser = errors.New("user is blocked")

// errorStatus переводит ошибку домена в HTTP статус и текст для клиента.
// Внутренние ошибки наружу не выдаются.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, chat.ErrRoomNotFound),
		errors.Is(err, chat.ErrMessageNotFound),
		errors.Is(err, listings.ErrNotFound):
		return http.StatusNotFound, err.Error()

	case errors.Is(err, chat.ErrForbidden),
		errors.Is(err, listings.ErrForbidden),
		errors.Is(err, errBlockedUser):
		return http.StatusForbidden, err.Error()

	case errors.Is(err, chat.ErrRoomNameTaken):
		return http.StatusConflict, err.Error()

	case errors.Is(err, chat.ErrNoActiveRoom),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrMessageTooLong),
		errors.Is(err, chat.ErrInvalidAttachment),
		errors.Is(err, chat.ErrInvalidRoomName),
		errors.Is(err, listings.ErrInvalidKind),
		errors.Is(err, listings.ErrInvalidTitle),
		errors.Is(err, listings.ErrInvalidRating),
		errors.Is(err, ws.ErrInvalidMessage),
		errors.Is(err, ws.ErrUnknownAction):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}
