package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jushkitchen/jush/pkg/crypt"
)

// FileTokenStore keeps the token encrypted on disk.
type FileTokenStore struct {
	path string
	box  *crypt.Box
}

// NewFileTokenStore stores the token at path, sealed with key.
func NewFileTokenStore(path, key string) (*FileTokenStore, error) {
	box, err := crypt.NewBox(key)
	if err != nil {
		return nil, err
	}
	return &FileTokenStore{path: path, box: box}, nil
}

// Load returns "" when nothing has been saved.
func (s *FileTokenStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("token store: %w", err)
	}
	tok, err := s.box.Decrypt(strings.TrimSpace(string(data)))
	if err != nil {
		return "", fmt.Errorf("token store: %w", err)
	}
	return tok, nil
}

func (s *FileTokenStore) Save(token string) error {
	enc, err := s.box.Encrypt(token)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("token store: %w", err)
	}
	return os.WriteFile(s.path, []byte(enc+"\n"), 0o600)
}

func (s *FileTokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("token store: %w", err)
	}
	return nil
}
