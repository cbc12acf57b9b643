package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rqlite/gorqlite"
	"go.uber.org/zap"
)

// RQLiteStore is a Store over an rqlite cluster. Values travel base64 encoded
// because rqlite's JSON API has no binary type.
type RQLiteStore struct {
	logger    *zap.Logger
	conn      *gorqlite.Connection
	namespace string
	mu        sync.Mutex
	closed    bool
}

// OpenRQLite connects to rqlite at url and prepares the key-value table.
func OpenRQLite(ctx context.Context, url, namespace string, logger *zap.Logger) (*RQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := gorqlite.Open(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rqlite: %w", err)
	}
	// Multi-statement writes run inside one rqlite transaction.
	if err := conn.SetExecutionWithTransaction(true); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable rqlite transactions: %w", err)
	}

	if _, err := conn.WriteOne(kvTableSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create storage table: %w", err)
	}

	logger.Info("Connected to rqlite store", zap.String("url", url), zap.String("namespace", namespace))
	return &RQLiteStore{logger: logger, conn: conn, namespace: namespace}, nil
}

func (s *RQLiteStore) Has(ctx context.Context, key string) (bool, error) {
	if s.isClosed() {
		return false, ErrClosed
	}
	result, err := s.conn.QueryOneParameterized(gorqlite.ParameterizedStatement{
		Query:     existsSQL,
		Arguments: []interface{}{s.namespace, key},
	})
	if err != nil {
		return false, fmt.Errorf("failed to check key existence: %w", err)
	}
	return result.NumRows() > 0, nil
}

func (s *RQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	result, err := s.conn.QueryOneParameterized(gorqlite.ParameterizedStatement{
		Query:     getSQL,
		Arguments: []interface{}{s.namespace, key},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	if !result.Next() {
		return nil, ErrNotFound
	}
	var encoded string
	if err := result.Scan(&encoded); err != nil {
		return nil, fmt.Errorf("failed to read value: %w", err)
	}
	return decodeValue(key, encoded)
}

func (s *RQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if s.isClosed() {
		return ErrClosed
	}
	_, err := s.conn.WriteOneParameterized(gorqlite.ParameterizedStatement{
		Query:     upsertSQL,
		Arguments: []interface{}{s.namespace, key, encodeValue(value)},
	})
	if err != nil {
		return fmt.Errorf("failed to store key: %w", err)
	}
	return nil
}

func (s *RQLiteStore) SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	if s.isClosed() {
		return false, ErrClosed
	}
	res, err := s.conn.WriteOneParameterized(gorqlite.ParameterizedStatement{
		Query:     insertIgnoreSQL,
		Arguments: []interface{}{s.namespace, key, encodeValue(value)},
	})
	if err != nil {
		return false, fmt.Errorf("failed to insert key: %w", err)
	}
	return res.RowsAffected == 1, nil
}

func (s *RQLiteStore) Apply(ctx context.Context, b *Batch) error {
	if err := validateBatch(b); err != nil {
		return err
	}
	if s.isClosed() {
		return ErrClosed
	}

	stmts := make([]gorqlite.ParameterizedStatement, 0, b.Len())
	for _, op := range b.ops {
		query := upsertSQL
		if op.Kind == OpInsert {
			query = insertSQL
		}
		stmts = append(stmts, gorqlite.ParameterizedStatement{
			Query:     query,
			Arguments: []interface{}{s.namespace, op.Key, encodeValue(op.Value)},
		})
	}

	results, err := s.conn.WriteParameterized(stmts)
	if err != nil {
		for _, r := range results {
			if r.Err != nil && strings.Contains(r.Err.Error(), "UNIQUE constraint failed") {
				return ErrKeyExists
			}
		}
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrKeyExists
		}
		return fmt.Errorf("failed to apply batch: %w", err)
	}
	s.logger.Debug("Applied batch", zap.Int("ops", b.Len()), zap.String("namespace", s.namespace))
	return nil
}

func (s *RQLiteStore) ScanPrefix(ctx context.Context, prefix string) ([]Entry, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	result, err := s.conn.QueryOneParameterized(gorqlite.ParameterizedStatement{
		Query:     scanSQL,
		Arguments: []interface{}{s.namespace, prefix, utf8.RuneCountInString(prefix), prefix},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan prefix: %w", err)
	}

	out := make([]Entry, 0, result.NumRows())
	for result.Next() {
		var key, encoded string
		if err := result.Scan(&key, &encoded); err != nil {
			return nil, fmt.Errorf("failed to read scan row: %w", err)
		}
		value, err := decodeValue(key, encoded)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry{Key: key, Value: value})
	}
	return out, nil
}

// Close closes the rqlite connection.
func (s *RQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.conn.Close()
	return nil
}

func (s *RQLiteStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func encodeValue(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func decodeValue(key, encoded string) ([]byte, error) {
	v, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("storage: value at %q is not base64: %w", key, err)
	}
	return v, nil
}
