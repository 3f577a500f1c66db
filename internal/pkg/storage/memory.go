package storage

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // etag only
	"encoding/hex"
	"io"
	"maps"
	"sync"
	"time"
)

// Memory implements Storage in process memory. It is intended for tests and
// single-instance deployments that do not need durability.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data []byte
	info ObjectInfo
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: map[string]memoryObject{}}
}

// PutObject implements Storage.
func (m *Memory) PutObject(ctx context.Context, bucket, key string, r io.Reader, opts PutOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	if err := checkObject(bucket, key); err != nil {
		return ObjectInfo{}, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return ObjectInfo{}, err
	}

	sum := md5.Sum(data) //nolint:gosec // etag only
	info := ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		Size:        int64(len(data)),
		ETag:        hex.EncodeToString(sum[:]),
		ContentType: opts.ContentType,
		Metadata:    maps.Clone(opts.Metadata),
		UpdatedAt:   time.Now(),
	}

	m.mu.Lock()
	m.objects[bucket+"/"+key] = memoryObject{data: data, info: info}
	m.mu.Unlock()

	return info, nil
}

// GetObject implements Storage.
func (m *Memory) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}
	if err := checkObject(bucket, key); err != nil {
		return nil, ObjectInfo{}, err
	}

	m.mu.RLock()
	obj, ok := m.objects[bucket+"/"+key]
	m.mu.RUnlock()
	if !ok {
		return nil, ObjectInfo{}, ErrObjectNotFound
	}

	info := obj.info
	info.Metadata = maps.Clone(obj.info.Metadata)

	return io.NopCloser(bytes.NewReader(obj.data)), info, nil
}

// DeleteObject implements Storage.
func (m *Memory) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkObject(bucket, key); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.objects, bucket+"/"+key)
	m.mu.Unlock()

	return nil
}

// Close implements io.Closer.
func (*Memory) Close() error {
	return nil
}
