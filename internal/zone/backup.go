package zone

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

const snapshotTimeFormat = "20060102T150405.000000000Z"

// Uploader keeps a copy of a snapshot off the host.
type Uploader interface {
	Upload(ctx context.Context, name string, body io.ReadSeeker, size int64) error
}

type Backup struct {
	Dir         string
	Keep        int
	Compression string
	Uploader    Uploader
}

func extension(compression string) string {
	switch compression {
	case "zstd":
		return ".zst"
	case "xz":
		return ".xz"
	default:
		return ""
	}
}

func (b *Backup) create(base string, now time.Time) (*os.File, error) {
	stamp := now.UTC().Format(snapshotTimeFormat)
	ext := extension(b.Compression)
	for i := 0; ; i++ {
		name := fmt.Sprintf("%s.%s%s", base, stamp, ext)
		if i > 0 {
			name = fmt.Sprintf("%s.%s-%d%s", base, stamp, i, ext)
		}
		f, err := os.OpenFile(filepath.Join(b.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil && os.IsExist(err) {
			continue
		}
		return f, err
	}
}

func (b *Backup) compressTo(w io.Writer, r io.Reader) error {
	switch b.Compression {
	case "zstd":
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if _, err := io.Copy(enc, r); err != nil {
			enc.Close()
			return err
		}
		return enc.Close()
	case "xz":
		enc, err := xz.NewWriter(w)
		if err != nil {
			return err
		}
		if _, err := io.Copy(enc, r); err != nil {
			enc.Close()
			return err
		}
		return enc.Close()
	default:
		_, err := io.Copy(w, r)
		return err
	}
}

// Snapshot copies src into the backup directory under a timestamped name and
// returns the snapshot path.
func (b *Backup) Snapshot(ctx context.Context, src string, now time.Time) (string, error) {
	if err := os.MkdirAll(b.Dir, 0755); err != nil {
		return "", err
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	base := filepath.Base(src)
	out, err := b.create(base, now)
	if err != nil {
		return "", err
	}
	snapshot := out.Name()

	if err := b.compressTo(out, in); err != nil {
		out.Close()
		os.Remove(snapshot)
		return "", err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(snapshot)
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(snapshot)
		return "", err
	}

	slog.Info("Saved zone snapshot", slog.String("snapshot", snapshot))

	if b.Keep > 0 {
		if err := b.prune(base); err != nil {
			slog.Warn("Failed to prune zone snapshots", slog.String("dir", b.Dir), slog.Any("error", err))
		}
	}

	if b.Uploader != nil {
		if err := b.upload(ctx, snapshot); err != nil {
			slog.Warn("Failed to upload zone snapshot", slog.String("snapshot", snapshot), slog.Any("error", err))
		}
	}

	return snapshot, nil
}

// List returns the snapshots of the named zone file, oldest first.
func (b *Backup) List(base string) ([]string, error) {
	entries, err := os.ReadDir(b.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var snapshots []string
	for _, e := range entries {
		rest, ok := strings.CutPrefix(e.Name(), base+".")
		if e.Type().IsRegular() && ok && rest != "" && rest[0] >= '0' && rest[0] <= '9' {
			snapshots = append(snapshots, filepath.Join(b.Dir, e.Name()))
		}
	}
	// Fixed-width timestamps sort chronologically.
	sort.Strings(snapshots)
	return snapshots, nil
}

func (b *Backup) prune(base string) error {
	snapshots, err := b.List(base)
	if err != nil {
		return err
	}
	if len(snapshots) <= b.Keep {
		return nil
	}
	var errs []error
	for _, s := range snapshots[:len(snapshots)-b.Keep] {
		if err := os.Remove(s); err != nil {
			errs = append(errs, err)
			continue
		}
		slog.Debug("Removed old zone snapshot", slog.String("snapshot", s))
	}
	return errors.Join(errs...)
}

func (b *Backup) upload(ctx context.Context, snapshot string) error {
	f, err := os.Open(snapshot)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	return b.Uploader.Upload(ctx, filepath.Base(snapshot), f, info.Size())
}

// ReadSnapshot returns the zone content stored in a snapshot, decompressing by
// file extension.
func ReadSnapshot(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch filepath.Ext(path) {
	case ".zst":
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return io.ReadAll(dec)
	case ".xz":
		dec, err := xz.NewReader(f)
		if err != nil {
			return nil, err
		}
		return io.ReadAll(dec)
	default:
		return io.ReadAll(f)
	}
}
