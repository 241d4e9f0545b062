package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/scaffre/billing-service/internal/config"
)

// Client stores proof-of-payment documents in a minio bucket.
type Client struct {
	client *minio.Client
	bucket string
}

func New(cfg config.StorageConfig) (*Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	return &Client{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket is called once at boot.
func (c *Client) EnsureBucket(ctx context.Context) error {
	found, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return err
	}
	if !found {
		return c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

// UploadProof writes the object and returns its URL. The caller decides
// the object name; nothing is overwritten because names embed a fresh
// UUID.
func (c *Client) UploadProof(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := c.client.PutObject(ctx, c.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", c.client.EndpointURL(), c.bucket, objectName), nil
}
