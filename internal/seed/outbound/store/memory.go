package store

import (
	"context"

	"go.uber.org/atomic"
)

// Memory keeps the seed in process memory. It is lost on restart.
type Memory struct {
	seed *atomic.String
}

// NewMemory returns an empty in-memory slot.
func NewMemory() *Memory {
	return &Memory{seed: atomic.NewString("")}
}

// Write implements Store.
func (m *Memory) Write(ctx context.Context, seed string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.seed.Store(seed)
	return nil
}

// Read implements Store.
func (m *Memory) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	return normalize(m.seed.Load())
}

// Close implements io.Closer.
func (*Memory) Close() error {
	return nil
}
