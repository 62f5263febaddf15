package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/thereayou/tourism-chat/internal/attachments"
	"github.com/thereayou/tourism-chat/internal/database"
	"github.com/thereayou/tourism-chat/internal/metrics"
	"github.com/thereayou/tourism-chat/internal/models"
)

// Broadcaster доставляет событие группе комнаты и группе конкретного сообщения
type Broadcaster interface {
	BroadcastMessageEvent(roomID, messageID uint, payload []byte)
	DropMessageGroup(messageID uint)
}

// FileStore сохраняет вложения сообщений
type FileStore interface {
	Save(name, content string) (string, error)
	Remove(stored string) error
}

// Attachment приходит от клиента в create_message
type Attachment struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// MessageStore сохраняет сообщения и рассылает события о них.
// Запись и рассылка для одной комнаты идут под общим замком комнаты,
// поэтому подписчики видят события в порядке сохранения.
type MessageStore struct {
	db          *database.Database
	files       FileStore
	broadcaster Broadcaster
	maxLength   int

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewMessageStore(db *database.Database, files FileStore, broadcaster Broadcaster, maxLength int) *MessageStore {
	return &MessageStore{
		db:          db,
		files:       files,
		broadcaster: broadcaster,
		maxLength:   maxLength,
		locks:       make(map[uint]*sync.Mutex),
	}
}

func (s *MessageStore) roomLock(roomID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[roomID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[roomID] = l
	}
	return l
}

// WithRoomLock выполняет fn под замком комнаты, общим с записью сообщений
func (s *MessageStore) WithRoomLock(roomID uint, fn func()) {
	lock := s.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()
	fn()
}

// ForgetRoom освобождает замок удалённой комнаты
func (s *MessageStore) ForgetRoom(roomID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, roomID)
}

// Create сохраняет сообщение в комнате и рассылает событие create
func (s *MessageStore) Create(ctx context.Context, roomID uint, author *models.User, text string, file *Attachment) (*models.Message, error) {
	// Текст сохраняется как есть; пробелы учитываются только при проверке на пустоту
	if strings.TrimSpace(text) == "" && file == nil {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > s.maxLength {
		return nil, ErrMessageTooLong
	}

	if _, err := s.db.GetRoom(ctx, roomID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("get room %d: %w", roomID, err)
	}

	var stored string
	if file != nil {
		var err error
		stored, err = s.files.Save(file.Name, file.Content)
		if errors.Is(err, attachments.ErrInvalid) || errors.Is(err, attachments.ErrTooLarge) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAttachment, err)
		}
		if err != nil {
			return nil, fmt.Errorf("save attachment: %w", err)
		}
	}

	lock := s.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	message := &models.Message{
		RoomID: roomID,
		UserID: author.ID,
		Text:   text,
		File:   stored,
	}
	if err := s.db.SaveMessage(ctx, message); err != nil {
		if rmErr := s.files.Remove(stored); rmErr != nil {
			log.Warn().Err(rmErr).Str("file", stored).Msg("failed to remove orphan attachment")
		}
		return nil, fmt.Errorf("save message: %w", err)
	}
	message.User = *author

	s.broadcast(message, ActionCreate)
	metrics.MessagesTotal.WithLabelValues(ActionCreate).Inc()
	log.Debug().
		Uint("message_id", message.ID).
		Uint("room_id", roomID).
		Str("user_id", author.ID.String()).
		Msg("message created")

	return message, nil
}

func (s *MessageStore) Get(ctx context.Context, messageID uint) (*models.Message, error) {
	message, err := s.db.GetMessage(ctx, messageID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message %d: %w", messageID, err)
	}
	return message, nil
}

// Delete удаляет сообщение. Удалять может автор, хозяин комнаты или администратор.
func (s *MessageStore) Delete(ctx context.Context, messageID uint, actor *models.User) (*models.Message, error) {
	message, err := s.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if message.UserID != actor.ID && !actor.IsAdmin() {
		room, err := s.db.GetRoom(ctx, message.RoomID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("get room %d: %w", message.RoomID, err)
		}
		if room == nil || room.HostID != actor.ID {
			return nil, ErrForbidden
		}
	}

	lock := s.roomLock(message.RoomID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.db.DeleteMessage(ctx, messageID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("delete message %d: %w", messageID, err)
	}
	if err := s.files.Remove(message.File); err != nil {
		log.Warn().Err(err).Str("file", message.File).Uint("message_id", messageID).Msg("failed to remove attachment")
	}

	s.broadcast(message, ActionDelete)
	s.broadcaster.DropMessageGroup(messageID)
	metrics.MessagesTotal.WithLabelValues(ActionDelete).Inc()
	log.Debug().
		Uint("message_id", messageID).
		Uint("room_id", message.RoomID).
		Str("user_id", actor.ID.String()).
		Msg("message deleted")

	return message, nil
}

func (s *MessageStore) broadcast(message *models.Message, action string) {
	payload, err := json.Marshal(MessageEvent{
		Data:   NewMessageView(message),
		Action: action,
		PK:     message.ID,
	})
	if err != nil {
		log.Error().Err(err).Uint("message_id", message.ID).Msg("failed to encode message event")
		return
	}
	s.broadcaster.BroadcastMessageEvent(message.RoomID, message.ID, payload)
}
