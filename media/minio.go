package media

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioSource reads public files from an S3-compatible bucket and is the
// Publisher for it.
type MinioSource struct {
	client *minio.Client
	bucket string
}

func NewMinioSource(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioSource, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to minio: %w", err)
	}

	return &MinioSource{client: client, bucket: bucket}, nil
}

func (m *MinioSource) Open(ctx context.Context, name string) (*Object, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", name, err)
	}

	// GetObject is lazy; Stat is where a missing key shows up
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("stat object %s: %w", name, err)
	}

	return &Object{Body: obj, Size: info.Size}, nil
}

// Put uploads one object, replacing any previous one under name.
func (m *MinioSource) Put(ctx context.Context, name string, obj *Object, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, name, obj.Body, obj.Size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object %s: %w", name, err)
	}
	return nil
}
