package gcpclient

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

// StorageAdapter wraps the GCS client to implement service.BlobStore: the
// Aggregator's archival-artifact writer, read back by the Uploader via URI.
type StorageAdapter struct {
	client *storage.Client
}

// NewStorageAdapter creates a StorageAdapter.
func NewStorageAdapter(ctx context.Context) (*StorageAdapter, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcpclient.NewStorageAdapter: %w", err)
	}
	return &StorageAdapter{client: client}, nil
}

// Put writes data to a GCS object with the given content type.
func (a *StorageAdapter) Put(ctx context.Context, bucket, object string, data []byte, contentType string) error {
	w := a.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("gcpclient.Put write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcpclient.Put close: %w", err)
	}
	return nil
}

// URI returns the gs:// URI for an object, the form the Uploader passes to
// the analytics sink as the conversation's data source.
func (a *StorageAdapter) URI(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}

// Close closes the underlying client.
func (a *StorageAdapter) Close() {
	a.client.Close()
}
