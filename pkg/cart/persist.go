package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Persister saves and restores cart lines between sessions.
type Persister interface {
	Load() ([]Item, error)
	Save(items []Item) error
}

// FilePersister keeps the cart as a JSON array in a single file. Writes go to
// a temp file first and are renamed into place.
type FilePersister struct {
	Path string
}

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{Path: path}
}

func (f *FilePersister) Load() ([]Item, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Path, err)
	}
	return items, nil
}

func (f *FilePersister) Save(items []Item) error {
	if items == nil {
		items = []Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), ".cart-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}

type nopPersister struct{}

func (nopPersister) Load() ([]Item, error) { return nil, nil }
func (nopPersister) Save([]Item) error     { return nil }
