// Package provider defines the object storage client that the bridge wraps.
//
// A Client is a blocking operation set: every method runs to completion and
// reports failure through its error return. Authentication uses SDK default
// credential chains - providers should not implement custom auth logic.
// Retries, if any, belong to the provider implementation.
package provider

import (
	"context"
)

// Client abstracts the storage operations exposed across the boundary.
//
// Implementations should:
//   - Use SDK default credential chains (AWS default config, GCP ADC)
//   - Be safe for concurrent use by independent operations
//   - Return ProviderError values wrapping the sentinel errors below
type Client interface {
	// CreateBucket creates a bucket and returns its metadata.
	// Returns ErrAlreadyExists if the bucket already exists.
	CreateBucket(ctx context.Context, name string, opts BucketOptions) (*BucketMeta, error)

	// GetBucketMetadata returns metadata for an existing bucket.
	// Returns ErrBucketNotFound if the bucket does not exist.
	GetBucketMetadata(ctx context.Context, bucket string) (*BucketMeta, error)

	// UploadFile uploads the local file at path as bucket/object.
	UploadFile(ctx context.Context, path, bucket, object string) (*ObjectMeta, error)

	// GetObjectMetadata returns metadata for a single object.
	// Returns ErrNotFound if the object does not exist.
	GetObjectMetadata(ctx context.Context, bucket, object string) (*ObjectMeta, error)

	// OpenWriteStream opens an append-only upload session for bucket/object.
	OpenWriteStream(ctx context.Context, bucket, object string) (ObjectWriter, error)

	// Close releases any resources held by the client.
	Close() error
}

// ObjectWriter is an open upload session bound to one object.
//
// Writes are strictly ordered and must not be issued concurrently. Once Write
// returns an error the session is unusable; the caller should Abort it.
type ObjectWriter interface {
	// Write appends p to the object. It blocks until the chunk is accepted.
	Write(p []byte) (int, error)

	// Commit finalizes the object and returns its metadata.
	Commit() (*ObjectMeta, error)

	// Abort abandons the upload. Nothing is committed.
	Abort() error
}

// BucketOptions configures CreateBucket.
type BucketOptions struct {
	// Location is the region or location constraint. Empty uses the provider default.
	Location string

	// StorageClass is the default storage class for new objects.
	StorageClass string

	// Labels are key/value labels attached to the bucket.
	Labels map[string]string

	// Versioning enables object versioning.
	Versioning bool

	// ObjectLock enables object retention support where the provider has it.
	ObjectLock bool
}

// ProviderType identifies a storage provider.
type ProviderType string

const (
	// ProviderS3 represents AWS S3 or S3-compatible storage.
	ProviderS3 ProviderType = "s3"

	// ProviderFile represents the local filesystem.
	ProviderFile ProviderType = "file"

	// ProviderGCS represents Google Cloud Storage (future).
	ProviderGCS ProviderType = "gcs"
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	return string(p)
}
