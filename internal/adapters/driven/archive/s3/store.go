// Package s3 implements archive storage on an S3-compatible bucket
// (AWS S3, MinIO, R2) using minio-go.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/custodia-labs/chronicle/internal/core/domain"
	"github.com/custodia-labs/chronicle/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ArchiveStorage = (*Store)(nil)

const contentType = "text/plain; charset=utf-8"

// Store writes record files as objects under a key prefix.
type Store struct {
	api    *minio.Client
	bucket string
	prefix string
}

// New creates a store for the bucket in cfg. Every key is written under
// prefix, which may be empty.
func New(cfg domain.S3Settings, prefix string) (*Store, error) {
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("%w: s3 endpoint and bucket are required", domain.ErrInvalidInput)
	}

	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	return &Store{
		api:    api,
		bucket: cfg.Bucket,
		prefix: strings.Trim(prefix, "/"),
	}, nil
}

func (s *Store) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

// Put uploads data at key.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return fmt.Errorf("%w: empty archive key", domain.ErrInvalidInput)
	}
	_, err := s.api.PutObject(ctx, s.bucket, s.objectKey(key), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Stats lists every object under the prefix.
func (s *Store) Stats(ctx context.Context) (domain.ArchiveStats, error) {
	st := domain.ArchiveStats{Location: s.Location()}

	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return st, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		return st, nil
	}
	st.Exists = true

	prefix := s.prefix
	if prefix != "" {
		prefix += "/"
	}
	for obj := range s.api.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return st, obj.Err
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		st.Files++
		st.Bytes += obj.Size
	}
	return st, nil
}

// Location returns s3://bucket/prefix.
func (s *Store) Location() string {
	if s.prefix == "" {
		return "s3://" + s.bucket
	}
	return "s3://" + s.bucket + "/" + s.prefix
}
