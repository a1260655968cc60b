package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// BlobStore keeps proof photos. Keys are unique per object.
type BlobStore interface {
	// Upload stores r under key. size may be -1 when unknown.
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// NewBlobKey returns a collision-free key that keeps the original file name readable.
func NewBlobKey(filename string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	if base == "." || base == ".." || base == "/" || base == "" {
		base = "file"
	}
	return uuid.NewString() + "_" + base
}

// MinioBlobStore stores objects in a MinIO (S3-compatible) bucket.
type MinioBlobStore struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// NewMinioBlobStore connects to endpoint. Call EnsureBucket before first use.
func NewMinioBlobStore(endpoint, accessKey, secretKey, bucket string, useSSL bool, logger *zap.Logger) (*MinioBlobStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &MinioBlobStore{client: client, bucket: bucket, logger: logger}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *MinioBlobStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	s.logger.Info("blob bucket created", zap.String("bucket", s.bucket))
	return nil
}

func (s *MinioBlobStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	s.logger.Debug("blob uploaded", zap.String("key", key), zap.Int64("size", info.Size))
	return nil
}

func (s *MinioBlobStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// FSBlobStore stores objects as files under a root directory of an afero filesystem.
type FSBlobStore struct {
	fs   afero.Fs
	root string
}

// NewFSBlobStore creates root on fs if needed.
func NewFSBlobStore(fs afero.Fs, root string) (*FSBlobStore, error) {
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob dir %s: %w", root, err)
	}
	return &FSBlobStore{fs: fs, root: root}, nil
}

func (s *FSBlobStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := afero.WriteReader(s.fs, p, r); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *FSBlobStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Exists reports whether key is stored.
func (s *FSBlobStore) Exists(key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	return afero.Exists(s.fs, p)
}

func (s *FSBlobStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.root, key), nil
}
