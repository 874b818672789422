// Package storage archives uploaded files in S3/MinIO and serves JSONL
// batch files back to the ingestion pipeline.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds S3/MinIO client configuration.
type Config struct {
	Endpoint        string // "localhost:9000" for MinIO
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// Client wraps the MinIO/S3 client.
type Client struct {
	minioClient *minio.Client
	bucket      string
}

// New creates a new S3/MinIO client.
func New(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	minioClient, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &Client{minioClient: minioClient, bucket: config.Bucket}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.minioClient.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := c.minioClient.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// PutUpload archives an uploaded file under the user's prefix and returns
// its addressable s3:// URL. That URL doubles as the document URL in the
// user's collection.
func (c *Client) PutUpload(ctx context.Context, userID, filename string, data []byte, contentType string) (string, error) {
	objectName := path.Join("uploads", userID, filename)

	_, err := c.minioClient.PutObject(ctx, c.bucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to put upload: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", c.bucket, objectName), nil
}

// IsObjectURL reports whether a URL addresses stored objects (s3://...)
// rather than the public web.
func IsObjectURL(rawURL string) bool {
	return strings.HasPrefix(rawURL, "s3://")
}

// GetObject reads an object addressed by its s3:// URL.
func (c *Client) GetObject(ctx context.Context, objectURL string) ([]byte, error) {
	u, err := url.Parse(objectURL)
	if err != nil || u.Scheme != "s3" {
		return nil, fmt.Errorf("not an object URL: %s", objectURL)
	}
	if u.Host != c.bucket {
		return nil, fmt.Errorf("object URL bucket %q does not match configured bucket %q", u.Host, c.bucket)
	}

	object, err := c.minioClient.GetObject(ctx, c.bucket, strings.TrimPrefix(u.Path, "/"), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

// Bucket returns the bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}
