package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// GCS stores blobs in a Google Cloud Storage bucket. It assumes Application
// Default Credentials are configured.
type GCS struct {
	bucket string
}

// NewGCS returns a store writing into the given bucket.
func NewGCS(bucket string) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("blobstore: bucket name is required")
	}
	return &GCS{bucket: bucket}, nil
}

var _ Store = (*GCS)(nil)

func (g *GCS) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", g.bucket, name), nil
}

func (g *GCS) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := splitURI(uri, "gs://")
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading bytes: %w", err)
	}
	return data, nil
}
