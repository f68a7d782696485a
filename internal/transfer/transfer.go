package transfer

//go:generate go tool mockgen -destination transfer_mock.go -package transfer . Transferer

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/kofuk/homedns/internal/config"
	"github.com/kofuk/homedns/internal/entity"
	"github.com/kofuk/homedns/internal/system"
)

// Transferer delivers a local file to the DNS host so that a reader there sees
// either the previous or the new complete content.
type Transferer interface {
	Transfer(ctx context.Context, localPath string) error
}

type Target struct {
	Host string
	User string
	Port int
	Path string
}

// RemoteFile resolves the destination for localPath. A Path ending in a slash is
// a directory that receives the file under its local name.
func (t Target) RemoteFile(localPath string) string {
	if strings.HasSuffix(t.Path, "/") {
		return path.Join(t.Path, filepath.Base(localPath))
	}
	return t.Path
}

func (t Target) Login() string {
	if t.User == "" {
		return t.Host
	}
	return t.User + "@" + t.Host
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%s", t.Login(), t.Path)
}

func failed(t Target, remote string, err error) error {
	return fmt.Errorf("transfer to %s:%s: %w: %w", t.Login(), remote, entity.ErrTransferFailed, err)
}

// partName is where the content lands before it is renamed over the destination.
func partName(remote string) string {
	return remote + ".part"
}

func New(cfg *config.Config, executor system.CommandExecutor) (Transferer, error) {
	target := Target{
		Host: cfg.RemoteHost,
		User: cfg.RemoteUser,
		Port: cfg.RemotePort,
		Path: cfg.RemotePath,
	}

	switch cfg.TransferMethod {
	case "scp":
		return &SCPTransferer{
			Target:   target,
			KeyFile:  cfg.SSHKeyFile,
			Timeout:  cfg.TransferTimeout,
			Executor: executor,
		}, nil
	case "ssh":
		return NewSSHTransferer(target, cfg.SSHKeyFile, cfg.SSHKnownHostsFile, cfg.TransferTimeout)
	default:
		return nil, fmt.Errorf("%w: unknown transfer method %q", entity.ErrInvalidConfig, cfg.TransferMethod)
	}
}
