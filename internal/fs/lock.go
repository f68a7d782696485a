package fs

import (
	"errors"
	"fmt"
	"os"

	"github.com/kofuk/homedns/internal/entity"
	"golang.org/x/sys/unix"
)

type FileLock struct {
	f *os.File
}

// Lock takes an exclusive advisory lock on path without blocking. If another
// process holds it, the returned error wraps entity.ErrBusy.
func Lock(path string) (*FileLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("lock %s: %w", path, entity.ErrBusy)
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	return &FileLock{f: f}, nil
}

func (l *FileLock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	err := l.f.Close()
	l.f = nil
	return err
}
