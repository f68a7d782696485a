package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/kofuk/homedns/internal/address"
	"github.com/kofuk/homedns/internal/entity"
	"github.com/kofuk/homedns/internal/fetcher"
	"github.com/kofuk/homedns/internal/fs"
	"github.com/kofuk/homedns/internal/transfer"
)

type ClientResult struct {
	CycleID     string
	Address     string
	Previous    string
	Changed     bool
	Transferred bool
}

// Client runs the home side of a cycle: fetch the external address, persist it
// when it changed and push it to the DNS host.
type Client struct {
	Source   fetcher.AddressSource
	Store    *address.Store
	Transfer transfer.Transferer
	LockPath string
	// PendingPath marks a saved address whose transfer has not succeeded yet, so
	// that the next cycle sends it even though the address is unchanged.
	PendingPath string
	// Force transfers the address even when it is unchanged.
	Force bool
}

func (c *Client) pending() bool {
	if c.PendingPath == "" {
		return false
	}
	_, err := os.Stat(c.PendingPath)
	return err == nil
}

func (c *Client) markPending(pending bool) error {
	if c.PendingPath == "" {
		return nil
	}
	if pending {
		return fs.WriteFileAtomic(c.PendingPath, nil, 0644)
	}
	if err := os.Remove(c.PendingPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (c *Client) Run(ctx context.Context) (result ClientResult, err error) {
	ctx, span, logger, id := startCycle(ctx, "CLIENT cycle")
	defer func() { endCycle(span, err) }()
	result.CycleID = id

	addr, err := c.Source.Fetch(ctx)
	if err != nil {
		return result, err
	}
	result.Address = addr

	l, err := lock(c.LockPath)
	if err != nil {
		return result, err
	}
	defer l.Unlock()

	previous, ok, err := c.Store.Load()
	if err != nil {
		return result, err
	}
	result.Previous = previous

	if ok && previous == addr {
		if !c.Force && !c.pending() {
			logger.Info("Address unchanged", slog.String("address", addr))
			return result, nil
		}
	} else {
		if err := c.Store.Save(addr); err != nil {
			return result, err
		}
		result.Changed = true
		logger.Info("Address changed", slog.String("address", addr), slog.String("previous", previous))
	}

	if err := c.markPending(true); err != nil {
		return result, fmt.Errorf("mark %s: %w: %w", c.PendingPath, entity.ErrStorage, err)
	}
	if err := c.Transfer.Transfer(ctx, c.Store.Path); err != nil {
		return result, err
	}
	result.Transferred = true
	if err := c.markPending(false); err != nil {
		logger.Warn("Failed to clear pending transfer marker", slog.String("path", c.PendingPath), slog.Any("error", err))
	}

	return result, nil
}
