package config_test

import (
	"testing"
	"time"

	"github.com/kofuk/homedns/internal/config"
	"github.com/kofuk/homedns/internal/entity"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LoadConfig", func() {
	It("should apply defaults", func() {
		cfg, err := config.LoadConfig()
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.FetchTimeout).To(Equal(10 * time.Second))
		Expect(cfg.Placeholder).To(Equal("HOMEREPLACEME"))
		Expect(cfg.StrictSubstitution).To(BeTrue())
		Expect(cfg.BackupEnabled).To(BeTrue())
		Expect(cfg.ReloadArgs).To(Equal([]string{"reload"}))
		Expect(cfg.TransferMethod).To(Equal("scp"))
	})

	It("should read overrides from the environment", func() {
		t := GinkgoT()
		t.Setenv("HOMEDNS_ENDPOINT_URL", "http://ip.example.com/")
		t.Setenv("HOMEDNS_FETCH_TIMEOUT", "3s")
		t.Setenv("HOMEDNS_STRICT_SUBSTITUTION", "false")
		t.Setenv("HOMEDNS_RELOAD_ARGS", "reload,example.com")
		t.Setenv("HOMEDNS_NOTIFY_TARGETS", "192.0.2.53:53,192.0.2.54:53")

		cfg, err := config.LoadConfig()
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.EndpointURL).To(Equal("http://ip.example.com/"))
		Expect(cfg.FetchTimeout).To(Equal(3 * time.Second))
		Expect(cfg.StrictSubstitution).To(BeFalse())
		Expect(cfg.ReloadArgs).To(Equal([]string{"reload", "example.com"}))
		Expect(cfg.NotifyTargets).To(HaveLen(2))
	})

	It("should report malformed values as invalid configuration", func() {
		GinkgoT().Setenv("HOMEDNS_FETCH_TIMEOUT", "soon")

		_, err := config.LoadConfig()
		Expect(err).To(MatchError(entity.ErrInvalidConfig))
	})
})

var _ = Describe("Validation", func() {
	var cfg *config.Config

	BeforeEach(func() {
		var err error
		cfg, err = config.LoadConfig()
		Expect(err).NotTo(HaveOccurred())
		cfg.RemoteHost = "ns.example.com"
	})

	It("should accept a complete client configuration", func() {
		Expect(cfg.ValidateClient()).To(Succeed())
	})

	It("should require a remote host on the client", func() {
		cfg.RemoteHost = ""
		Expect(cfg.ValidateClient()).To(MatchError(entity.ErrInvalidConfig))
	})

	It("should require a key for the native ssh transfer", func() {
		cfg.TransferMethod = "ssh"
		Expect(cfg.ValidateClient()).To(MatchError(entity.ErrInvalidConfig))

		cfg.SSHKeyFile = "/root/.ssh/id_ed25519"
		Expect(cfg.ValidateClient()).To(Succeed())
	})

	It("should reject non-http endpoints", func() {
		cfg.EndpointURL = "ftp://ip.example.com"
		Expect(cfg.ValidateClient()).To(MatchError(entity.ErrInvalidConfig))
	})

	It("should accept the default server configuration", func() {
		Expect(cfg.ValidateServer()).To(Succeed())
	})

	It("should reject colliding zone file names", func() {
		cfg.WorkFile = cfg.ZoneFile
		Expect(cfg.ValidateServer()).To(MatchError(entity.ErrInvalidConfig))
	})

	It("should reject an unknown backup compression", func() {
		cfg.BackupCompression = "gzip"
		Expect(cfg.ValidateServer()).To(MatchError(entity.ErrInvalidConfig))
	})

	It("should require a zone name for NOTIFY", func() {
		cfg.NotifyTargets = []string{"192.0.2.53:53"}
		Expect(cfg.ValidateServer()).To(MatchError(entity.ErrInvalidConfig))

		cfg.ZoneName = "example.com."
		Expect(cfg.ValidateServer()).To(Succeed())
	})

	It("should derive paths from the zone directory", func() {
		cfg.ZoneDir = "/srv/zones"
		Expect(cfg.TemplatePath()).To(Equal("/srv/zones/db.home.template"))
		Expect(cfg.ZonePath()).To(Equal("/srv/zones/db.home"))
		Expect(cfg.ServerLockPath()).To(Equal("/srv/zones/.db.home.lock"))
		Expect(cfg.ReloadPendingPath()).To(Equal("/srv/zones/.db.home.reload-pending"))
	})
})

func Test(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}
