package importer

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectSource opens CSV objects stored in an S3 compatible bucket
type ObjectSource struct {
	client *minio.Client
}

// NewObjectSource connects to endpoint with static credentials
func NewObjectSource(endpoint, accessKey, secretKey string, useSSL bool) (*ObjectSource, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("importer: MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("importer: failed to create minio client: %w", err)
	}
	return &ObjectSource{client: client}, nil
}

// Open returns a reader over bucket/key along with the object size in bytes
func (s *ObjectSource) Open(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error) {
	info, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, 0, fmt.Errorf("importer: object %s/%s does not exist", bucket, key)
		}
		return nil, 0, fmt.Errorf("importer: failed to stat object: %w", err)
	}

	object, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("importer: failed to get object: %w", err)
	}
	return object, info.Size, nil
}
