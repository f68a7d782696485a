package transfer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHTransferer copies the file over an in-process SSH connection. The remote
// side only needs a POSIX shell with cat, chmod, touch and mv.
type SSHTransferer struct {
	Target  Target
	Timeout time.Duration
	config  *ssh.ClientConfig
}

var _ Transferer = (*SSHTransferer)(nil)

func defaultKnownHosts() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", "known_hosts")
}

func NewSSHTransferer(target Target, keyFile, knownHostsFile string, timeout time.Duration) (*SSHTransferer, error) {
	keyData, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, failed(target, target.Path, fmt.Errorf("read private key: %w", err))
	}
	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, failed(target, target.Path, fmt.Errorf("parse private key %s: %w", keyFile, err))
	}

	if knownHostsFile == "" {
		knownHostsFile = defaultKnownHosts()
	}
	hostKeyCallback, err := knownhosts.New(knownHostsFile)
	if err != nil {
		return nil, failed(target, target.Path, fmt.Errorf("load known hosts %s: %w", knownHostsFile, err))
	}

	user := target.User
	if user == "" {
		user = os.Getenv("USER")
	}

	return &SSHTransferer{
		Target:  target,
		Timeout: timeout,
		config: &ssh.ClientConfig{
			User:            user,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: hostKeyCallback,
			Timeout:         timeout,
		},
	}, nil
}

func (s *SSHTransferer) dial(ctx context.Context) (*ssh.Client, error) {
	addr := net.JoinHostPort(s.Target.Host, strconv.Itoa(s.Target.Port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, s.config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	conn.SetDeadline(time.Time{})

	return ssh.NewClient(c, chans, reqs), nil
}

func installCommand(part, remote string, mode os.FileMode, mtime time.Time) string {
	p, r := shellQuote(part), shellQuote(remote)
	return fmt.Sprintf("cat > %s && chmod %o %s && touch -m -d @%d %s && mv -f %s %s",
		p, mode.Perm(), p, mtime.Unix(), p, p, r)
}

func (s *SSHTransferer) Transfer(ctx context.Context, localPath string) error {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	remote := s.Target.RemoteFile(localPath)

	f, err := os.Open(localPath)
	if err != nil {
		return failed(s.Target, remote, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return failed(s.Target, remote, err)
	}

	client, err := s.dial(ctx)
	if err != nil {
		return failed(s.Target, remote, err)
	}
	defer client.Close()
	stop := context.AfterFunc(ctx, func() {
		client.Close()
	})
	defer stop()

	session, err := client.NewSession()
	if err != nil {
		return failed(s.Target, remote, err)
	}
	defer session.Close()

	var stderr bytes.Buffer
	session.Stdin = f
	session.Stderr = &stderr

	if err := session.Run(installCommand(partName(remote), remote, info.Mode(), info.ModTime())); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return failed(s.Target, remote, err)
	}

	slog.Info("Transferred address file", slog.String("local", localPath), slog.String("remote", s.Target.Login()+":"+remote))

	return nil
}
