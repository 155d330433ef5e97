package photosource

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kozaktomas/photo-story/internal/config"
)

// ObjectOpener reads s3://bucket/key references through a MinIO client.
type ObjectOpener struct {
	client *minio.Client
}

// NewObjectOpener connects to the configured endpoint. It returns nil when
// no endpoint is configured.
func NewObjectOpener(cfg config.MinIOConfig) (*ObjectOpener, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: "us-east-1",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &ObjectOpener{client: client}, nil
}

func (o *ObjectOpener) Open(ctx context.Context, ref string) ([]byte, error) {
	bucket, key, err := ParseObjectRef(ref)
	if err != nil {
		return nil, err
	}

	obj, err := o.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", ref, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil, fmt.Errorf("object %s not found: %w", ref, err)
		}
		return nil, fmt.Errorf("failed to read %s: %w", ref, err)
	}
	return data, nil
}
