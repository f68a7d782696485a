package cli_test

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/kofuk/homedns/internal/cli"
	"github.com/kofuk/homedns/internal/entity"
	"github.com/kofuk/homedns/internal/metadata"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const zoneTemplate = `$TTL 300
@ IN SOA ns.example.com. hostmaster.example.com. 1 3600 900 604800 300
@ IN NS ns.example.com.
home IN A HOMEREPLACEME
`

func execute(args ...string) (string, error) {
	app := &cli.App{}
	cmd := app.NewRootCommand()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

var _ = Describe("CLI", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		t := GinkgoT()
		t.Setenv("HOMEDNS_STATE_DIR", dir)
		t.Setenv("HOMEDNS_BACKUP_DIR", filepath.Join(dir, "backup"))
		t.Setenv("HOMEDNS_ZONE_NAME", "example.com")
	})

	It("should print the version without reading the configuration", func() {
		GinkgoT().Setenv("HOMEDNS_FETCH_TIMEOUT", "soon")

		out, err := execute("version")
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.TrimSpace(out)).To(Equal(metadata.Revision))
	})

	It("should exit with the configuration status for a bad environment", func() {
		GinkgoT().Setenv("HOMEDNS_FETCH_TIMEOUT", "soon")

		Expect(cli.Run(context.Background(), []string{"fetch"}, nil)).To(Equal(int(entity.ExitInvalidConfig)))
	})

	It("should refuse a client without a remote host", func() {
		GinkgoT().Setenv("HOMEDNS_REMOTE_HOST", "")

		_, err := execute("client", "--address-file", filepath.Join(dir, "address"))
		Expect(entity.ExitCodeOf(err)).To(Equal(entity.ExitInvalidConfig))
		Expect(filepath.Join(dir, "address")).NotTo(BeAnExistingFile())
	})

	Describe("fetch", func() {
		BeforeEach(func() {
			httpmock.Activate()
			DeferCleanup(httpmock.DeactivateAndReset)
		})

		It("should print the external address", func() {
			httpmock.RegisterResponder(http.MethodGet, "http://ip.test/", httpmock.NewStringResponder(http.StatusOK, "203.0.113.7\n"))

			out, err := execute("fetch", "--endpoint", "http://ip.test/")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("203.0.113.7\n"))
		})

		It("should exit with the validation status for garbage", func() {
			httpmock.RegisterResponder(http.MethodGet, "http://ip.test/", httpmock.NewStringResponder(http.StatusOK, "not-an-ip"))

			code := cli.Run(context.Background(), []string{"fetch", "--endpoint", "http://ip.test/"}, nil)
			Expect(code).To(Equal(int(entity.ExitInvalidAddress)))
		})
	})

	Describe("render", func() {
		var zoneDir string

		BeforeEach(func() {
			zoneDir = filepath.Join(dir, "zones")
			Expect(os.MkdirAll(zoneDir, 0755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(zoneDir, "db.home.template"), []byte(zoneTemplate), 0644)).To(Succeed())
		})

		It("should deploy the zone for the given address", func() {
			out, err := execute("render", "--zone-dir", zoneDir, "--address", "10.0.0.2")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HavePrefix("changed=true"))

			content, err := os.ReadFile(filepath.Join(zoneDir, "db.home"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(ContainSubstring("home IN A 10.0.0.2"))
		})

		It("should let flags override the environment", func() {
			GinkgoT().Setenv("HOMEDNS_PLACEHOLDER", "SOMETHING_ELSE")

			_, err := execute("render", "--zone-dir", zoneDir, "--placeholder", "HOMEREPLACEME", "--address", "10.0.0.2")
			Expect(err).NotTo(HaveOccurred())
		})

		It("should read settings from an env file", func() {
			// Restored to unset once the test ends.
			GinkgoT().Setenv("HOMEDNS_ZONE_DIR", "")
			Expect(os.Unsetenv("HOMEDNS_ZONE_DIR")).To(Succeed())

			envFile := filepath.Join(dir, "homedns.env")
			Expect(os.WriteFile(envFile, []byte("HOMEDNS_ZONE_DIR="+zoneDir+"\n"), 0644)).To(Succeed())

			_, err := execute("render", "--env-file", envFile, "--address", "10.0.0.2")
			Expect(err).NotTo(HaveOccurred())
			Expect(filepath.Join(zoneDir, "db.home")).To(BeAnExistingFile())
		})

		It("should render the received address", func() {
			addressFile := filepath.Join(dir, "received")
			Expect(os.WriteFile(addressFile, []byte("10.0.0.9\n"), 0644)).To(Succeed())

			_, err := execute("render", "--zone-dir", zoneDir, "--address-file", addressFile)
			Expect(err).NotTo(HaveOccurred())

			content, err := os.ReadFile(filepath.Join(zoneDir, "db.home"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(ContainSubstring("home IN A 10.0.0.9"))
		})

		It("should report a missing template", func() {
			Expect(os.Remove(filepath.Join(zoneDir, "db.home.template"))).To(Succeed())

			code := cli.Run(context.Background(), []string{"render", "--zone-dir", zoneDir, "--address", "10.0.0.2"}, nil)
			Expect(code).To(Equal(int(entity.ExitTemplateNotFound)))
		})
	})

	Describe("server", func() {
		It("should deploy and reload", func() {
			zoneDir := filepath.Join(dir, "zones")
			Expect(os.MkdirAll(zoneDir, 0755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(zoneDir, "db.home.template"), []byte(zoneTemplate), 0644)).To(Succeed())
			addressFile := filepath.Join(dir, "received")
			Expect(os.WriteFile(addressFile, []byte("10.0.0.2\n"), 0644)).To(Succeed())
			GinkgoT().Setenv("HOMEDNS_RELOAD_COMMAND", "true")

			_, err := execute("server", "--zone-dir", zoneDir, "--address-file", addressFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(filepath.Join(zoneDir, "db.home")).To(BeAnExistingFile())
		})

		It("should exit with the reload status when the reload fails", func() {
			zoneDir := filepath.Join(dir, "zones")
			Expect(os.MkdirAll(zoneDir, 0755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(zoneDir, "db.home.template"), []byte(zoneTemplate), 0644)).To(Succeed())
			addressFile := filepath.Join(dir, "received")
			Expect(os.WriteFile(addressFile, []byte("10.0.0.2\n"), 0644)).To(Succeed())
			GinkgoT().Setenv("HOMEDNS_RELOAD_COMMAND", "false")

			code := cli.Run(context.Background(), []string{"server", "--zone-dir", zoneDir, "--address-file", addressFile}, nil)
			Expect(code).To(Equal(int(entity.ExitReloadFailed)))
		})
	})
})

func Test(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "CLI Suite")
}
