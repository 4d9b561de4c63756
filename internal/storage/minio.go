package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
)

// MinioStorage stores media in a MinIO bucket with a public read policy.
type MinioStorage struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewMinioStorage connects to MinIO and creates the bucket when missing.
func NewMinioStorage(ctx context.Context, cfg config.ObjectStoreConfig) (*MinioStorage, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("minio storage: bucket is required")
	}

	endpoint := cfg.Endpoint
	if i := strings.Index(endpoint, "://"); i >= 0 {
		endpoint = endpoint[i+3:]
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("minio create bucket: %w", err)
		}
		if err := client.SetBucketPolicy(ctx, cfg.Bucket, publicReadPolicy(cfg.Bucket)); err != nil {
			return nil, fmt.Errorf("minio bucket policy: %w", err)
		}
		logging.FromContext(ctx).Info("object store bucket created", "bucket", cfg.Bucket)
	}

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = client.EndpointURL().String()
	}

	return &MinioStorage{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimSuffix(baseURL, "/") + "/" + cfg.Bucket,
	}, nil
}

// Store uploads the file at localPath under a fresh key.
func (m *MinioStorage) Store(ctx context.Context, localPath string) (models.MediaRef, error) {
	key := objectKey(localPath)
	_, err := m.client.FPutObject(ctx, m.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType(key),
	})
	if err != nil {
		return models.MediaRef{}, fmt.Errorf("minio storage upload %s: %w", key, err)
	}
	return models.MediaRef{URL: publicURL(m.baseURL, key), StorageID: key}, nil
}

// Delete removes the object. Deleting a missing key succeeds.
func (m *MinioStorage) Delete(ctx context.Context, storageID string) error {
	if storageID == "" {
		return nil
	}
	err := m.client.RemoveObject(ctx, m.bucket, storageID, minio.RemoveObjectOptions{})
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("minio storage delete %s: %w", storageID, err)
	}
	return nil
}

func publicReadPolicy(bucket string) string {
	return `{
    "Version": "2012-10-17",
    "Statement": [{
        "Effect": "Allow",
        "Principal": {"AWS": ["*"]},
        "Action": ["s3:GetObject"],
        "Resource": ["arn:aws:s3:::` + bucket + `/*"]
    }]
}`
}
