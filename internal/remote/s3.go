package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Store implements Store against any S3-compatible endpoint (Cloudflare
// R2, MinIO, AWS) via the minio client.
type S3Store struct {
	client *minio.Client
	bucket string
}

// S3Options configures an S3Store.
type S3Options struct {
	EndpointURL     string
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Store validates the options and returns a connected store. No request
// is made here; credentials are only exercised on the first call.
func NewS3Store(opts S3Options) (*S3Store, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(opts.EndpointURL), "/")
	bucket := strings.TrimSpace(opts.Bucket)
	if endpoint == "" || bucket == "" {
		return nil, fmt.Errorf("remote: endpoint and bucket are required")
	}
	if opts.AccessKeyID == "" || opts.SecretAccessKey == "" {
		return nil, fmt.Errorf("remote: credentials are required")
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("remote: invalid endpoint URL %q", opts.EndpointURL)
	}
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		region = "auto"
	}

	client, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: u.Scheme == "https",
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("remote: configure client: %w", err)
	}
	return &S3Store{client: client, bucket: bucket}, nil
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("remote: stat %s: %w", key, err)
	}
	return true, nil
}

func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("remote: get %s: %w", key, err)
	}
	// GetObject defers the request; Stat forces it so a missing object is
	// reported here rather than on first read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if isNotFound(err) {
			return nil, fmt.Errorf("remote: get %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("remote: get %s: %w", key, err)
	}
	return obj, nil
}

func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, length int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, body, length,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("remote: put %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remote: delete %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("remote: list %q: %w", prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey"
}
