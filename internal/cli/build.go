package cli

import (
	"context"
	"path/filepath"

	"github.com/kofuk/homedns/internal/address"
	"github.com/kofuk/homedns/internal/config"
	"github.com/kofuk/homedns/internal/fetcher"
	"github.com/kofuk/homedns/internal/reload"
	"github.com/kofuk/homedns/internal/s3wrap"
	"github.com/kofuk/homedns/internal/system"
	"github.com/kofuk/homedns/internal/transfer"
	"github.com/kofuk/homedns/internal/workflow"
	"github.com/kofuk/homedns/internal/zone"
)

func newExecutor(cfg *config.Config) system.CommandExecutor {
	return system.NewExecutor(filepath.Join(cfg.StateDir, "log"))
}

func newClient(cfg *config.Config, force bool) (*workflow.Client, error) {
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}

	t, err := transfer.New(cfg, newExecutor(cfg))
	if err != nil {
		return nil, err
	}

	return &workflow.Client{
		Source:      fetcher.New(cfg.EndpointURL, cfg.FetchTimeout),
		Store:       address.NewStore(cfg.AddressFile),
		Transfer:    t,
		LockPath:    cfg.ClientLockPath(),
		PendingPath: cfg.AddressFile + ".pending",
		Force:       force,
	}, nil
}

func newRenderer(ctx context.Context, cfg *config.Config, force bool) (*zone.Renderer, error) {
	if err := cfg.ValidateRender(); err != nil {
		return nil, err
	}

	var uploader zone.Uploader
	if cfg.BackupEnabled && cfg.BackupS3Bucket != "" {
		client, err := s3wrap.New(ctx, cfg.S3ForcePathStyle)
		if err != nil {
			return nil, err
		}
		uploader = &s3wrap.BackupUploader{
			Client: client,
			Bucket: cfg.BackupS3Bucket,
			Prefix: cfg.BackupS3Prefix,
			Keep:   cfg.BackupKeep,
		}
	}

	renderer := zone.NewRenderer(cfg, zone.NewBackup(cfg, uploader))
	renderer.Force = force
	return renderer, nil
}

func newServer(ctx context.Context, cfg *config.Config, force bool) (*workflow.Server, error) {
	if err := cfg.ValidateServer(); err != nil {
		return nil, err
	}

	renderer, err := newRenderer(ctx, cfg, force)
	if err != nil {
		return nil, err
	}

	server := &workflow.Server{
		Store:             address.NewStore(cfg.ServerAddressFile),
		Renderer:          renderer,
		Reloader:          reload.New(cfg, newExecutor(cfg)),
		LockPath:          cfg.ServerLockPath(),
		ReloadPendingPath: cfg.ReloadPendingPath(),
	}
	if len(cfg.NotifyTargets) > 0 {
		server.Notifier = &reload.Notifier{
			Targets: cfg.NotifyTargets,
			Zone:    cfg.ZoneName,
			Timeout: cfg.NotifyTimeout,
		}
	}
	if cfg.VerifyServer != "" {
		server.Verifier = &reload.Verifier{
			Server:  cfg.VerifyServer,
			Name:    cfg.RecordName,
			Timeout: cfg.NotifyTimeout,
		}
	}
	return server, nil
}
