package reload

//go:generate go tool mockgen -destination reload_mock.go -package reload . Reloader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kofuk/homedns/internal/config"
	"github.com/kofuk/homedns/internal/entity"
	"github.com/kofuk/homedns/internal/system"
)

// Reloader makes the name server pick up the deployed zone file.
type Reloader interface {
	Reload(ctx context.Context) error
}

// CommandReloader runs an administrative command such as `rndc reload <zone>`.
type CommandReloader struct {
	Command  string
	Args     []string
	Zone     string
	Timeout  time.Duration
	Executor system.CommandExecutor
}

var _ Reloader = (*CommandReloader)(nil)

func New(cfg *config.Config, executor system.CommandExecutor) *CommandReloader {
	return &CommandReloader{
		Command:  cfg.ReloadCommand,
		Args:     cfg.ReloadArgs,
		Zone:     cfg.ZoneName,
		Timeout:  cfg.ReloadTimeout,
		Executor: executor,
	}
}

func (r *CommandReloader) args() []string {
	args := append([]string{}, r.Args...)
	if r.Zone != "" {
		args = append(args, r.Zone)
	}
	return args
}

func (r *CommandReloader) Reload(ctx context.Context) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	output, err := system.RunWithOutput(ctx, r.Executor, r.Command, r.args())
	if err != nil {
		return fmt.Errorf("%w: %s: %w (the zone file is already deployed; reload the name server by hand)", entity.ErrReloadFailed, r.Command, err)
	}

	slog.Info("Reloaded name server", slog.String("command", r.Command), slog.String("output", output))

	return nil
}
