package transfer_test

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/kofuk/homedns/internal/entity"
	"github.com/kofuk/homedns/internal/transfer"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// sshServer runs exec requests through the local shell, like sshd would.
type sshServer struct {
	listener net.Listener
	hostKey  ssh.Signer
}

func startSSHServer(authorized ssh.PublicKey) *sshServer {
	_, hostPriv, err := ed25519.GenerateKey(rand.Reader)
	Expect(err).NotTo(HaveOccurred())
	hostKey, err := ssh.NewSignerFromKey(hostPriv)
	Expect(err).NotTo(HaveOccurred())

	cfg := &ssh.ServerConfig{
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if bytes.Equal(key.Marshal(), authorized.Marshal()) {
				return nil, nil
			}
			return nil, errors.New("unauthorized")
		},
	}
	cfg.AddHostKey(hostKey)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go serveConn(conn, cfg)
		}
	}()

	return &sshServer{listener: listener, hostKey: hostKey}
}

func serveConn(conn net.Conn, cfg *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			newCh.Reject(ssh.UnknownChannelType, "unsupported")
			continue
		}
		ch, requests, err := newCh.Accept()
		if err != nil {
			continue
		}
		go func() {
			defer ch.Close()
			for req := range requests {
				if req.Type != "exec" {
					req.Reply(false, nil)
					continue
				}
				var payload struct{ Command string }
				ssh.Unmarshal(req.Payload, &payload)
				req.Reply(true, nil)

				cmd := exec.Command("sh", "-c", payload.Command)
				cmd.Stdin = ch
				cmd.Stdout = ch
				cmd.Stderr = ch.Stderr()
				var status uint32
				if err := cmd.Run(); err != nil {
					status = 1
				}
				ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
				return
			}
		}()
	}
}

func (s *sshServer) Close() {
	s.listener.Close()
}

func (s *sshServer) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

var _ = Describe("SSHTransferer", func() {
	var (
		dir            string
		keyFile        string
		knownHostsFile string
		server         *sshServer
		remoteDir      string
		localFile      string
		mtime          time.Time
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		remoteDir = filepath.Join(dir, "remote")
		Expect(os.Mkdir(remoteDir, 0755)).To(Succeed())

		clientPub, clientPriv, err := ed25519.GenerateKey(rand.Reader)
		Expect(err).NotTo(HaveOccurred())
		block, err := ssh.MarshalPrivateKey(clientPriv, "")
		Expect(err).NotTo(HaveOccurred())
		keyFile = filepath.Join(dir, "id_ed25519")
		Expect(os.WriteFile(keyFile, pem.EncodeToMemory(block), 0600)).To(Succeed())

		sshPub, err := ssh.NewPublicKey(clientPub)
		Expect(err).NotTo(HaveOccurred())
		server = startSSHServer(sshPub)
		DeferCleanup(server.Close)

		knownHostsFile = filepath.Join(dir, "known_hosts")
		line := knownhosts.Line([]string{knownhosts.Normalize(server.listener.Addr().String())}, server.hostKey.PublicKey())
		Expect(os.WriteFile(knownHostsFile, []byte(line+"\n"), 0644)).To(Succeed())

		localFile = filepath.Join(dir, "address")
		Expect(os.WriteFile(localFile, []byte("10.0.0.2\n"), 0640)).To(Succeed())
		mtime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		Expect(os.Chtimes(localFile, mtime, mtime)).To(Succeed())
	})

	newTransferer := func() *transfer.SSHTransferer {
		target := transfer.Target{Host: "127.0.0.1", User: "dns", Port: server.Port(), Path: remoteDir + "/"}
		sut, err := transfer.NewSSHTransferer(target, keyFile, knownHostsFile, 10*time.Second)
		Expect(err).NotTo(HaveOccurred())
		return sut
	}

	It("should deliver the file with its metadata", func() {
		sut := newTransferer()

		Expect(sut.Transfer(context.Background(), localFile)).To(Succeed())

		remoteFile := filepath.Join(remoteDir, "address")
		content, err := os.ReadFile(remoteFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(Equal("10.0.0.2\n"))

		info, err := os.Stat(remoteFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0640)))
		Expect(info.ModTime().Unix()).To(Equal(mtime.Unix()))

		Expect(remoteFile + ".part").NotTo(BeAnExistingFile())
	})

	It("should refuse an unknown host key", func() {
		Expect(os.WriteFile(knownHostsFile, nil, 0644)).To(Succeed())
		sut := newTransferer()

		err := sut.Transfer(context.Background(), localFile)
		Expect(err).To(MatchError(entity.ErrTransferFailed))
		Expect(filepath.Join(remoteDir, "address")).NotTo(BeAnExistingFile())
	})

	It("should surface remote command failures", func() {
		target := transfer.Target{Host: "127.0.0.1", User: "dns", Port: server.Port(), Path: filepath.Join(dir, "missing") + "/"}
		sut, err := transfer.NewSSHTransferer(target, keyFile, knownHostsFile, 10*time.Second)
		Expect(err).NotTo(HaveOccurred())

		err = sut.Transfer(context.Background(), localFile)
		Expect(err).To(MatchError(entity.ErrTransferFailed))
	})
})
