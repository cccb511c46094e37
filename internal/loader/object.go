package loader

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/models"
)

// ObjectLoader loads documents from an S3-compatible bucket. Object keys
// become document keys; empty objects are skipped.
type ObjectLoader struct {
	client     *minio.Client
	bucket     string
	prefix     string
	extensions []string
}

// NewObjectLoader creates a loader for the bucket and prefix in cfg.
func NewObjectLoader(cfg *config.LoaderConfig) (*ObjectLoader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}
	return &ObjectLoader{
		client:     client,
		bucket:     cfg.Bucket,
		prefix:     cfg.Prefix,
		extensions: cfg.Extensions,
	}, nil
}

// Load lists the bucket under the configured prefix and fetches every object
// whose key matches the allowed extensions.
func (l *ObjectLoader) Load(ctx context.Context) ([]*models.Document, error) {
	var docs []*models.Document
	objects := l.client.ListObjects(ctx, l.bucket, minio.ListObjectsOptions{
		Prefix:    l.prefix,
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		if !extensionAllowed(obj.Key, l.extensions) {
			continue
		}
		content, err := l.fetch(ctx, obj.Key)
		if err != nil {
			return nil, err
		}
		if len(content) == 0 {
			continue
		}
		docs = append(docs, &models.Document{
			Key:     obj.Key,
			Content: string(content),
			Metadata: models.DocumentMetadata{
				Source:       fmt.Sprintf("s3://%s/%s", l.bucket, obj.Key),
				Size:         obj.Size,
				LastModified: obj.LastModified,
			},
		})
	}
	return docs, nil
}

func (l *ObjectLoader) fetch(ctx context.Context, key string) ([]byte, error) {
	obj, err := l.client.GetObject(ctx, l.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer obj.Close()
	content, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return content, nil
}
