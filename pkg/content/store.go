// Package content stores opaque payloads (serialized envelope sets and
// attachments) by reference. The ledger never sees the bytes, only the ref.
package content

import (
	"context"
	"fmt"

	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
)

// DefaultMaxSize bounds a single payload.
const DefaultMaxSize = 32 << 20

// ErrNotFound is returned by Get for an unknown ref.
var ErrNotFound = fmt.Errorf("content %w", apperrors.ErrNotFound)

// Store is a content-addressed blob store.
type Store interface {
	// Put stores data and returns its ref. name is a hint for the backend.
	Put(ctx context.Context, data []byte, name string) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
	Health(ctx context.Context) error
}

func validateRef(ref string) error {
	if ref == "" {
		return apperrors.NewValidationError("ref", "content ref is required", nil)
	}
	return nil
}
