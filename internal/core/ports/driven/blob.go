package driven

import (
	"context"
	"io"
)

// BlobObjectInfo describes one object returned by BlobStore.List, used by
// the SSOT synchronizer to diff remote state against stored Documents.
type BlobObjectInfo struct {
	Key          string
	ETag         string
	Size         int64
	LastModified string
}

// BlobStore fetches and enumerates objects from an S3-compatible object
// store (AWS S3, or a MinIO/self-hosted equivalent speaking the S3 API).
type BlobStore interface {
	// Get streams an object's content. Callers must close the reader.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// Put uploads an object and returns its storage URI.
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64) (string, error)

	// List enumerates objects under a bucket/prefix.
	List(ctx context.Context, bucket, prefix string) ([]BlobObjectInfo, error)

	// Delete removes an object.
	Delete(ctx context.Context, bucket, key string) error
}
