package store

import (
	"context"
	"fmt"

	"github.com/shandysiswandi/seedotp/internal/pkg/sealer"
)

// PurposeSeed is the sealing purpose bound into every sealed seed.
const PurposeSeed = "totp_seed"

// Sealed encrypts the seed with AES-256-GCM before it reaches the wrapped
// driver. The slot name is bound into the ciphertext, so a value copied from
// another slot fails to open.
type Sealed struct {
	next   Store
	sealer *sealer.AESGCM
	scope  sealer.Scope
}

// NewSealed wraps next. slot identifies the storage location (file path,
// redis key, bucket/key) and must stay stable across restarts.
func NewSealed(next Store, s *sealer.AESGCM, slot string) *Sealed {
	return &Sealed{
		next:   next,
		sealer: s,
		scope:  sealer.Scope{Purpose: PurposeSeed, Slot: slot},
	}
}

// Write implements Store.
func (s *Sealed) Write(ctx context.Context, seed string) error {
	sealed, err := s.sealer.SealString(seed, s.scope)
	if err != nil {
		return fmt.Errorf("%w: seal: %w", ErrStorage, err)
	}
	return s.next.Write(ctx, sealed)
}

// Read implements Store.
func (s *Sealed) Read(ctx context.Context) (string, error) {
	sealed, err := s.next.Read(ctx)
	if err != nil {
		return "", err
	}

	seed, err := s.sealer.OpenString(sealed, s.scope)
	if err != nil {
		return "", fmt.Errorf("%w: open: %w", ErrStorage, err)
	}

	return normalize(seed)
}

// Close closes the wrapped store.
func (s *Sealed) Close() error {
	return s.next.Close()
}
