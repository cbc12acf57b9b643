// Package storage implements the key-value primitive every ledger component
// builds on: point reads and writes, atomic batches, and prefix scans ordered
// by raw key bytes.
package storage

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
)

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = fmt.Errorf("storage: key %w", apperrors.ErrNotFound)

	// ErrKeyExists is returned by Apply when an Insert targets a present key.
	// The whole batch is discarded.
	ErrKeyExists = fmt.Errorf("storage: key %w", apperrors.ErrConflict)

	// ErrClosed is returned after Close.
	ErrClosed = fmt.Errorf("storage: store closed")
)

// Entry is one key/value pair returned by ScanPrefix.
type Entry struct {
	Key   string
	Value []byte
}

// Store is a prefix-scannable key-value store. Implementations must return
// ScanPrefix results in ascending byte order of the key and must apply a
// Batch all-or-nothing.
type Store interface {
	Has(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetIfAbsent writes value only when key is absent and reports whether it
	// did. It is the compare-and-set used for first-write-wins records.
	SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error)
	Apply(ctx context.Context, b *Batch) error
	ScanPrefix(ctx context.Context, prefix string) ([]Entry, error)
	Close() error
}

// OpKind identifies a batch operation.
type OpKind int

const (
	// OpPut writes unconditionally.
	OpPut OpKind = iota
	// OpInsert writes only if the key is absent, otherwise the batch fails
	// with ErrKeyExists.
	OpInsert
)

// Op is one write inside a Batch.
type Op struct {
	Kind  OpKind
	Key   string
	Value []byte
}

// Batch collects writes that must become visible together.
type Batch struct {
	ops []Op
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Put adds an unconditional write.
func (b *Batch) Put(key string, value []byte) *Batch {
	b.ops = append(b.ops, Op{Kind: OpPut, Key: key, Value: value})
	return b
}

// Insert adds a write that requires key to be absent.
func (b *Batch) Insert(key string, value []byte) *Batch {
	b.ops = append(b.ops, Op{Kind: OpInsert, Key: key, Value: value})
	return b
}

// Ops returns the queued operations in order.
func (b *Batch) Ops() []Op {
	return b.ops
}

// Len returns the number of queued operations.
func (b *Batch) Len() int {
	return len(b.ops)
}

func validateKey(key string) error {
	if key == "" {
		return apperrors.NewValidationError("key", "key must not be empty", key)
	}
	return nil
}

func validateBatch(b *Batch) error {
	if b == nil || len(b.ops) == 0 {
		return apperrors.NewValidationError("batch", "batch must contain at least one operation", nil)
	}
	for _, op := range b.ops {
		if err := validateKey(op.Key); err != nil {
			return err
		}
	}
	return nil
}

func hasKeyPrefix(key, prefix string) bool {
	return strings.HasPrefix(key, prefix)
}
