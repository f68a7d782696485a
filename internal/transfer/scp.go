package transfer

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/kofuk/homedns/internal/system"
)

// SCPTransferer shells out to the OpenSSH client tools. Trust is established out
// of band, so BatchMode keeps a missing key from turning into a password prompt.
type SCPTransferer struct {
	Target   Target
	KeyFile  string
	Timeout  time.Duration
	Executor system.CommandExecutor
}

var _ Transferer = (*SCPTransferer)(nil)

func (s *SCPTransferer) commonOptions() []string {
	opts := []string{"-o", "BatchMode=yes"}
	if s.KeyFile != "" {
		opts = append(opts, "-i", s.KeyFile)
	}
	return opts
}

func (s *SCPTransferer) scpArgs(localPath, part string) []string {
	args := []string{"-p", "-q", "-P", strconv.Itoa(s.Target.Port)}
	args = append(args, s.commonOptions()...)
	return append(args, localPath, s.Target.Login()+":"+part)
}

func (s *SCPTransferer) sshArgs(command ...string) []string {
	args := []string{"-p", strconv.Itoa(s.Target.Port)}
	args = append(args, s.commonOptions()...)
	args = append(args, s.Target.Login(), "--")
	return append(args, command...)
}

func (s *SCPTransferer) Transfer(ctx context.Context, localPath string) error {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	remote := s.Target.RemoteFile(localPath)
	part := partName(remote)

	if err := s.Executor.Run(ctx, "scp", s.scpArgs(localPath, part)); err != nil {
		return failed(s.Target, remote, err)
	}
	if err := s.Executor.Run(ctx, "ssh", s.sshArgs("mv", "-f", shellQuote(part), shellQuote(remote))); err != nil {
		return failed(s.Target, remote, err)
	}

	slog.Info("Transferred address file", slog.String("local", localPath), slog.String("remote", s.Target.Login()+":"+remote))

	return nil
}
