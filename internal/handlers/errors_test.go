package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thereayou/tourism-chat/internal/chat"
	"github.com/thereayou/tourism-chat/internal/listings"
	ws "github.com/thereayou/tourism-chat/internal/websocket"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{chat.ErrRoomNotFound, http.StatusNotFound},
		{fmt.Errorf("delete: %w", chat.ErrMessageNotFound), http.StatusNotFound},
		{listings.ErrNotFound, http.StatusNotFound},
		{chat.ErrForbidden, http.StatusForbidden},
		{errBlockedUser, http.StatusForbidden},
		{chat.ErrRoomNameTaken, http.StatusConflict},
		{chat.ErrNoActiveRoom, http.StatusBadRequest},
		{chat.ErrMessageTooLong, http.StatusBadRequest},
		{ws.ErrUnknownAction, http.StatusBadRequest},
		{listings.ErrInvalidRating, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, msg := errorStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.err.Error(), msg)
		})
	}
}

func TestErrorStatus_HidesInternalErrors(t *testing.T) {
	status, msg := errorStatus(errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", msg)
}
