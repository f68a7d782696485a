package zone_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kofuk/homedns/internal/zone"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingUploader struct {
	names   []string
	bodies  [][]byte
	failure error
}

func (u *recordingUploader) Upload(_ context.Context, name string, body io.ReadSeeker, size int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	Expect(int64(len(data))).To(Equal(size))
	u.names = append(u.names, name)
	u.bodies = append(u.bodies, data)
	return u.failure
}

var _ = Describe("Backup", func() {
	var (
		dir  string
		src  string
		now  time.Time
		body = "home IN A 10.0.0.1\n"
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		src = filepath.Join(dir, "db.home")
		Expect(os.WriteFile(src, []byte(body), 0644)).To(Succeed())
		now = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	})

	DescribeTable("compression round trip",
		func(compression, ext string) {
			b := &zone.Backup{Dir: filepath.Join(dir, "backup"), Compression: compression}

			snapshot, err := b.Snapshot(context.Background(), src, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(filepath.Base(snapshot)).To(Equal("db.home.20261019T080000.000000000Z" + ext))

			content, err := zone.ReadSnapshot(snapshot)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(Equal(body))
		},
		Entry("plain", "none", ""),
		Entry("zstd", "zstd", ".zst"),
		Entry("xz", "xz", ".xz"),
	)

	It("should not overwrite a snapshot taken at the same instant", func() {
		b := &zone.Backup{Dir: filepath.Join(dir, "backup"), Compression: "none"}

		first, err := b.Snapshot(context.Background(), src, now)
		Expect(err).NotTo(HaveOccurred())
		second, err := b.Snapshot(context.Background(), src, now)
		Expect(err).NotTo(HaveOccurred())

		Expect(second).NotTo(Equal(first))
		Expect(second).To(HaveSuffix("-1"))
	})

	It("should upload snapshots when an uploader is set", func() {
		uploader := &recordingUploader{}
		b := &zone.Backup{Dir: filepath.Join(dir, "backup"), Compression: "none", Uploader: uploader}

		snapshot, err := b.Snapshot(context.Background(), src, now)
		Expect(err).NotTo(HaveOccurred())

		Expect(uploader.names).To(Equal([]string{filepath.Base(snapshot)}))
		Expect(bytes.Equal(uploader.bodies[0], []byte(body))).To(BeTrue())
	})

	It("should keep the local snapshot when the upload fails", func() {
		uploader := &recordingUploader{failure: errors.New("access denied")}
		b := &zone.Backup{Dir: filepath.Join(dir, "backup"), Compression: "none", Uploader: uploader}

		snapshot, err := b.Snapshot(context.Background(), src, now)
		Expect(err).NotTo(HaveOccurred())
		Expect(snapshot).To(BeAnExistingFile())
	})

	It("should list only snapshots of the given zone", func() {
		backupDir := filepath.Join(dir, "backup")
		b := &zone.Backup{Dir: backupDir, Compression: "none"}
		_, err := b.Snapshot(context.Background(), src, now)
		Expect(err).NotTo(HaveOccurred())
		Expect(os.WriteFile(filepath.Join(backupDir, "db.home.arpa.20261019T080000.000000000Z"), nil, 0644)).To(Succeed())

		snapshots, err := b.List("db.home")
		Expect(err).NotTo(HaveOccurred())
		Expect(snapshots).To(HaveLen(1))
		Expect(strings.HasPrefix(filepath.Base(snapshots[0]), "db.home.2026")).To(BeTrue())
	})
})
