package s3wrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"sort"

	"github.com/aws/smithy-go"
)

var snapshotName = regexp.MustCompile(`^(.+)\.\d{8}T\d{6}\.\d{9}Z(-\d+)?(\.zst|\.xz)?$`)

// BackupUploader stores zone snapshots under Prefix in Bucket. When Keep is
// positive, older remote snapshots of the same zone are removed after upload.
type BackupUploader struct {
	Client *Client
	Bucket string
	Prefix string
	Keep   int
}

// withErrorCode surfaces the service error code, which is what an operator
// needs to fix bucket permissions.
func withErrorCode(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %w", apiErr.ErrorCode(), err)
	}
	return err
}

func (u *BackupUploader) Upload(ctx context.Context, name string, body io.ReadSeeker, size int64) error {
	key := u.Prefix + name
	if err := u.Client.PutObject(ctx, u.Bucket, key, body, size); err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", u.Bucket, key, withErrorCode(err))
	}
	slog.Info("Uploaded zone snapshot", slog.String("bucket", u.Bucket), slog.String("key", key))

	if u.Keep > 0 {
		if err := u.prune(ctx, name); err != nil {
			return fmt.Errorf("prune s3://%s/%s: %w", u.Bucket, u.Prefix, withErrorCode(err))
		}
	}
	return nil
}

func (u *BackupUploader) prune(ctx context.Context, name string) error {
	m := snapshotName.FindStringSubmatch(name)
	if m == nil {
		return nil
	}

	objects, err := u.Client.ListObjects(ctx, u.Bucket, WithPrefix(u.Prefix+m[1]+"."))
	if err != nil {
		return err
	}

	var keys []string
	for _, obj := range objects {
		if sm := snapshotName.FindStringSubmatch(path.Base(obj.Key)); sm != nil && sm[1] == m[1] {
			keys = append(keys, obj.Key)
		}
	}
	if len(keys) <= u.Keep {
		return nil
	}
	sort.Strings(keys)

	stale := keys[:len(keys)-u.Keep]
	slog.Info("Removing old remote snapshots", slog.Int("count", len(stale)))
	return u.Client.DeleteObjects(ctx, u.Bucket, stale)
}
