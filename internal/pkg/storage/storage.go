package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrObjectNotFound is returned when the bucket has no object under the key.
	ErrObjectNotFound = errors.New("storage: object not found")
	// ErrBucketRequired is returned when an operation is called without a bucket.
	ErrBucketRequired = errors.New("storage: bucket is required")
	// ErrKeyRequired is returned when an operation is called without an object key.
	ErrKeyRequired = errors.New("storage: key is required")
)

// Storage defines object storage operations.
type Storage interface {
	io.Closer

	// PutObject stores data and returns object metadata. An existing object
	// under the same key is replaced.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, opts PutOptions) (ObjectInfo, error)
	// GetObject retrieves data and metadata for the object. The caller closes
	// the reader. A missing object yields ErrObjectNotFound.
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error)
	// DeleteObject removes the object. Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, bucket, key string) error
}

// PutOptions configures upload behavior.
type PutOptions struct {
	// Size is the expected content length, -1 or 0 when unknown.
	Size int64
	// ContentType is the MIME type for the object.
	ContentType string
	// Metadata includes custom key/value metadata.
	Metadata map[string]string
}

// ObjectInfo describes object metadata.
type ObjectInfo struct {
	// Bucket is the bucket name.
	Bucket string
	// Key is the object key.
	Key string
	// Size is the object size in bytes.
	Size int64
	// ETag is the object ETag when provided.
	ETag string
	// ContentType is the object MIME type.
	ContentType string
	// Metadata is user-defined metadata.
	Metadata map[string]string
	// UpdatedAt is the last modified time.
	UpdatedAt time.Time
}

func checkObject(bucket, key string) error {
	if bucket == "" {
		return ErrBucketRequired
	}
	if key == "" {
		return ErrKeyRequired
	}
	return nil
}
