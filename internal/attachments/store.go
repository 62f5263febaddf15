// Package attachments хранит файлы, приложенные к сообщениям чата, на локальном диске.
package attachments

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// URLPrefix, под которым файлы раздаются по HTTP
const URLPrefix = "uploads"

var (
	ErrInvalid  = errors.New("invalid attachment")
	ErrTooLarge = errors.New("attachment is too large")
)

type Store struct {
	dir      string
	maxBytes int64
}

func NewStore(dir string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Save декодирует base64 содержимое и сохраняет его под случайным именем.
// Возвращает путь вида uploads/<uuid><ext>.
func (s *Store) Save(name, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrInvalid
	}
	if int64(base64.StdEncoding.DecodedLen(len(content))) > s.maxBytes+2 {
		return "", ErrTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) > 10 {
		ext = ""
	}
	fileName := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.dir, fileName), data, 0o644); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	return path.Join(URLPrefix, fileName), nil
}

// Remove удаляет ранее сохранённый файл; отсутствие файла не ошибка
func (s *Store) Remove(stored string) error {
	if stored == "" {
		return nil
	}
	name := path.Base(stored)
	if name == "." || name == "/" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
