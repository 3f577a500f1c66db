// Package store persists the single decrypted hex seed.
//
// Every driver holds exactly one value. Write replaces it (last writer wins,
// no versioning) and Read returns it whitespace-trimmed. A missing or blank
// seed is reported as goerror.ErrNotFound; every other failure wraps
// ErrStorage.
package store

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/shandysiswandi/seedotp/internal/pkg/goerror"
)

// ErrStorage classifies seed persistence failures other than absence.
var ErrStorage = errors.New("seed store: storage failure")

// Store is a single-slot seed store.
type Store interface {
	io.Closer

	Write(ctx context.Context, seed string) error
	Read(ctx context.Context) (string, error)
}

func normalize(raw string) (string, error) {
	seed := strings.TrimSpace(raw)
	if seed == "" {
		return "", goerror.ErrNotFound
	}
	return seed, nil
}
