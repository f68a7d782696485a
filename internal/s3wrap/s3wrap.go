package s3wrap

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4Signer "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
)

type Client struct {
	s3 *s3.Client
}

type noAcceptEncodingSigner struct {
	signer s3.HTTPSignerV4
}

func (signer *noAcceptEncodingSigner) SignHTTP(ctx context.Context, credentials aws.Credentials, r *http.Request, payloadHash string, service string, region string, signingTime time.Time, optFns ...func(*v4Signer.SignerOptions)) error {
	acceptEncoding := r.Header.Get("Accept-Encoding")
	r.Header.Del("Accept-Encoding")
	err := signer.signer.SignHTTP(ctx, credentials, r, payloadHash, service, region, signingTime, optFns...)
	if acceptEncoding != "" {
		r.Header.Set("Accept-Encoding", acceptEncoding)
	}
	return err
}

// New builds a client from the default credential chain. optFns are applied
// after the defaults, so they can point the client at another endpoint.
func New(ctx context.Context, forcePathStyle bool, optFns ...func(*s3.Options)) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	otelaws.AppendMiddlewares(&cfg.APIOptions)

	options := []func(*s3.Options){
		func(options *s3.Options) {
			options.UsePathStyle = forcePathStyle
			defSigner := v4Signer.NewSigner(func(so *v4Signer.SignerOptions) {
				so.Logger = options.Logger
				so.LogSigning = options.ClientLogMode.IsSigning()
				so.DisableURIPathEscaping = true
			})
			options.HTTPSignerV4 = &noAcceptEncodingSigner{signer: defSigner}
		},
	}
	s3Client := s3.NewFromConfig(cfg, append(options, optFns...)...)

	return &Client{s3: s3Client}, nil
}

type ObjectMetaData struct {
	Key       string
	Timestamp time.Time
}

type ListObjectsOption func(*s3.ListObjectsV2Input)

func WithPrefix(prefix string) ListObjectsOption {
	return func(o *s3.ListObjectsV2Input) {
		o.Prefix = &prefix
	}
}

func (client *Client) ListObjects(ctx context.Context, bucket string, opts ...ListObjectsOption) ([]ObjectMetaData, error) {
	params := &s3.ListObjectsV2Input{
		Bucket: &bucket,
	}
	for _, opt := range opts {
		opt(params)
	}

	var result []ObjectMetaData
	paginator := s3.NewListObjectsV2Paginator(client.s3, params)
	for paginator.HasMorePages() {
		resp, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		for _, obj := range resp.Contents {
			if strings.HasSuffix(aws.ToString(obj.Key), "/") {
				// Quirk: GCS's XML API returns directories as objects.
				continue
			}

			result = append(result, ObjectMetaData{
				Key:       aws.ToString(obj.Key),
				Timestamp: aws.ToTime(obj.LastModified),
			})
		}
	}

	return result, nil
}

func (client *Client) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	var objectIds []types.ObjectIdentifier
	for _, key := range keys {
		objectIds = append(objectIds, types.ObjectIdentifier{
			Key: aws.String(key),
		})
	}
	if _, err := client.s3.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: &bucket,
		Delete: &types.Delete{
			Objects: objectIds,
		},
	}); err != nil {
		return err
	}

	return nil
}

func (client *Client) PutObject(ctx context.Context, bucket, key string, body io.ReadSeeker, size int64) error {
	if _, err := client.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &bucket,
		Key:           &key,
		Body:          body,
		ContentLength: aws.Int64(size),
	}); err != nil {
		return err
	}

	return nil
}
