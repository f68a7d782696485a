package address

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kofuk/homedns/internal/entity"
	"github.com/kofuk/homedns/internal/fs"
)

// Store persists the last known address as a single trimmed line.
type Store struct {
	Path string
}

func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Load returns the stored address. ok is false when nothing has been stored yet.
func (s *Store) Load() (addr string, ok bool, err error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read address file %s: %w: %w", s.Path, entity.ErrStorage, err)
	}
	addr = strings.TrimSpace(string(data))
	if addr == "" {
		return "", false, nil
	}
	return addr, true, nil
}

func (s *Store) Save(addr string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return fmt.Errorf("create directory for %s: %w: %w", s.Path, entity.ErrStorage, err)
	}
	if err := fs.WriteFileAtomic(s.Path, []byte(addr+"\n"), 0644); err != nil {
		return fmt.Errorf("write address file %s: %w: %w", s.Path, entity.ErrStorage, err)
	}
	return nil
}
