// Package s3 is the S3-compatible object store backend (GCS interop, AWS,
// MinIO) built on minio-go.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"svgrender/internal/config"
	"svgrender/internal/domain"
	"svgrender/internal/infra/logging"
	"svgrender/internal/store"
)

const maxPresignTTL = 7 * 24 * time.Hour

type Storage struct {
	cl     *minio.Client
	bucket string
}

var _ store.Backend = (*Storage)(nil)

// New builds the client. When static keys are absent the AWS env, MinIO env
// and instance metadata providers are tried in turn.
func New(cfg config.StorageConfig) (*Storage, error) {
	opts := &minio.Options{
		Creds:  credentialsFor(cfg),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	}
	if cfg.PathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}
	cl, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &Storage{cl: cl, bucket: cfg.Bucket}, nil
}

func credentialsFor(cfg config.StorageConfig) *credentials.Credentials {
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		return credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}
	return credentials.NewChainCredentials([]credentials.Provider{
		&credentials.EnvAWS{},
		&credentials.EnvMinio{},
		&credentials.IAM{Client: &http.Client{Transport: http.DefaultTransport}},
	})
}

// EnsureBucket checks the bucket and creates it when create is set.
func (s *Storage) EnsureBucket(ctx context.Context, region string, create bool) error {
	exists, err := s.cl.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if !create {
		return fmt.Errorf("bucket %q does not exist", s.bucket)
	}
	if err := s.cl.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("create bucket %q: %w", s.bucket, err)
	}
	logging.Info("created bucket", "bucket", s.bucket)
	return nil
}

func (s *Storage) Put(ctx context.Context, name string, data []byte, contentType string) error {
	_, err := s.cl.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", name, err)
	}
	return nil
}

func (s *Storage) List(ctx context.Context, prefix string) ([]domain.StoredObject, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var out []domain.StoredObject
	for obj := range s.cl.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects %q: %w", prefix, obj.Err)
		}
		out = append(out, domain.StoredObject{
			Name:      obj.Key,
			CreatedAt: obj.LastModified,
			SizeBytes: obj.Size,
		})
	}
	return out, nil
}

func (s *Storage) Remove(ctx context.Context, name string) error {
	err := s.cl.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{})
	if isNotFound(err) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("remove object %q: %w", name, err)
	}
	return nil
}

func (s *Storage) PresignGet(ctx context.Context, name string, ttl time.Duration) (string, error) {
	if ttl < time.Second || ttl > maxPresignTTL {
		return "", fmt.Errorf("presign ttl %s outside 1s..7d", ttl)
	}
	u, err := s.cl.PresignedGetObject(ctx, s.bucket, name, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign %q: %w", name, err)
	}
	return u.String(), nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
