package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/kofuk/homedns/internal/address"
	"github.com/kofuk/homedns/internal/entity"
	"github.com/kofuk/homedns/internal/fs"
	"github.com/kofuk/homedns/internal/reload"
	"github.com/kofuk/homedns/internal/zone"
)

type Renderer interface {
	Render(ctx context.Context, addr string) (*zone.Result, error)
}

type Notifier interface {
	Notify(ctx context.Context) error
}

type Verifier interface {
	Verify(ctx context.Context, addr string) error
}

type ServerResult struct {
	CycleID    string
	Address    string
	Changed    bool
	Serial     uint32
	BackupPath string
	Reloaded   bool
	Warnings   []string
}

// Server runs the DNS host side of a cycle: deploy the zone for the received
// address and have the name server load it. Notifier and Verifier are optional
// and their failures are only reported as warnings.
type Server struct {
	Store    *address.Store
	Renderer Renderer
	Reloader reload.Reloader
	Notifier Notifier
	Verifier Verifier
	LockPath string
	// ReloadPendingPath marks a deployed zone the name server has not loaded
	// yet, so that the next cycle reloads even though the zone is unchanged.
	ReloadPendingPath string
}

func (s *Server) reloadPending() bool {
	if s.ReloadPendingPath == "" {
		return false
	}
	_, err := os.Stat(s.ReloadPendingPath)
	return err == nil
}

func (s *Server) markReloadPending(pending bool) error {
	if s.ReloadPendingPath == "" {
		return nil
	}
	if pending {
		return fs.WriteFileAtomic(s.ReloadPendingPath, nil, 0644)
	}
	if err := os.Remove(s.ReloadPendingPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Server) Run(ctx context.Context) (result ServerResult, err error) {
	ctx, span, logger, id := startCycle(ctx, "SERVER cycle")
	defer func() { endCycle(span, err) }()
	result.CycleID = id

	l, err := lock(s.LockPath)
	if err != nil {
		return result, err
	}
	defer l.Unlock()

	addr, ok, err := s.Store.Load()
	if err != nil {
		return result, err
	}
	if !ok {
		return result, fmt.Errorf("%w: no address in %s", entity.ErrStorage, s.Store.Path)
	}
	addr, err = address.Canonical(addr)
	if err != nil {
		return result, fmt.Errorf("address file %s: %w", s.Store.Path, err)
	}
	result.Address = addr

	rendered, err := s.Renderer.Render(ctx, addr)
	if err != nil {
		return result, err
	}
	result.Changed = rendered.Changed
	result.Serial = rendered.Serial
	result.BackupPath = rendered.BackupPath
	if !rendered.Changed {
		if !s.reloadPending() {
			return result, nil
		}
		logger.Info("Retrying reload of the deployed zone", slog.String("marker", s.ReloadPendingPath))
	}

	if err := s.markReloadPending(true); err != nil {
		return result, fmt.Errorf("mark %s: %w: %w", s.ReloadPendingPath, entity.ErrStorage, err)
	}
	if err := s.Reloader.Reload(ctx); err != nil {
		return result, err
	}
	result.Reloaded = true
	if err := s.markReloadPending(false); err != nil {
		logger.Warn("Failed to clear pending reload marker", slog.String("path", s.ReloadPendingPath), slog.Any("error", err))
	}

	if s.Notifier != nil {
		if err := s.Notifier.Notify(ctx); err != nil {
			logger.Warn("Failed to notify secondaries", slog.Any("error", err))
			result.Warnings = append(result.Warnings, err.Error())
		}
	}
	if s.Verifier != nil {
		if err := s.Verifier.Verify(ctx, addr); err != nil {
			logger.Warn("Name server does not serve the new address yet", slog.Any("error", err))
			result.Warnings = append(result.Warnings, err.Error())
		}
	}

	logger.Info("Zone updated", slog.String("address", addr), slog.Any("serial", result.Serial))

	return result, nil
}
