package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shandysiswandi/seedotp/internal/pkg/goerror"
	"github.com/shandysiswandi/seedotp/internal/pkg/storage"
)

// DefaultObjectKey is the object key used by the object driver unless configured.
const DefaultObjectKey = "seedotp/seed.txt"

// maxObjectBytes bounds how much of the object is read; a sealed seed is
// well under 1 KiB.
const maxObjectBytes = 4096

// Object stores the seed as a single object in S3, MinIO or GCS.
type Object struct {
	storage storage.Storage
	bucket  string
	key     string
}

// NewObject wraps st. The store owns st and closes it on Close.
func NewObject(st storage.Storage, bucket, key string) *Object {
	if key == "" {
		key = DefaultObjectKey
	}
	return &Object{storage: st, bucket: bucket, key: key}
}

// Write implements Store.
func (o *Object) Write(ctx context.Context, seed string) error {
	_, err := o.storage.PutObject(ctx, o.bucket, o.key, strings.NewReader(seed), storage.PutOptions{
		Size:        int64(len(seed)),
		ContentType: "text/plain; charset=utf-8",
	})
	if err != nil {
		return fmt.Errorf("%w: put object: %w", ErrStorage, err)
	}
	return nil
}

// Read implements Store.
func (o *Object) Read(ctx context.Context) (string, error) {
	rc, _, err := o.storage.GetObject(ctx, o.bucket, o.key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return "", goerror.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: get object: %w", ErrStorage, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxObjectBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read object: %w", ErrStorage, err)
	}

	return normalize(string(data))
}

// Close closes the underlying storage client.
func (o *Object) Close() error {
	return o.storage.Close()
}
