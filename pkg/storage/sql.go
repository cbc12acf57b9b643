package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLStore is a Store over a local sqlite database.
type SQLStore struct {
	logger    *zap.Logger
	db        *sql.DB
	namespace string
	mu        sync.RWMutex
	closed    bool
}

// OpenSQLite opens (or creates) the sqlite database at path and prepares the
// key-value table. namespace scopes all keys so several ledgers can share one
// file.
func OpenSQLite(ctx context.Context, path, namespace string, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One writer at a time keeps batches from racing on SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLStore{logger: logger, db: db, namespace: namespace}
	if err := s.initTables(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Opened sqlite store", zap.String("path", path), zap.String("namespace", namespace))
	return s, nil
}

func (s *SQLStore) Has(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrClosed
	}

	var exists int
	err := s.db.QueryRowContext(ctx, existsSQL, s.namespace, key).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check key existence: %w", err)
	}
	return true, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var value []byte
	err := s.db.QueryRowContext(ctx, getSQL, s.namespace, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	return value, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if _, err := s.db.ExecContext(ctx, upsertSQL, s.namespace, key, nonNil(value)); err != nil {
		return fmt.Errorf("failed to store key: %w", err)
	}
	s.logger.Debug("Stored key", zap.String("key", key), zap.String("namespace", s.namespace))
	return nil
}

func (s *SQLStore) SetIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	res, err := s.db.ExecContext(ctx, insertIgnoreSQL, s.namespace, key, nonNil(value))
	if err != nil {
		return false, fmt.Errorf("failed to insert key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *SQLStore) Apply(ctx context.Context, b *Batch) error {
	if err := validateBatch(b); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch: %w", err)
	}
	defer tx.Rollback()

	for _, op := range b.ops {
		query := upsertSQL
		if op.Kind == OpInsert {
			query = insertSQL
		}
		if _, err := tx.ExecContext(ctx, query, s.namespace, op.Key, nonNil(op.Value)); err != nil {
			if isConstraintViolation(err) {
				return ErrKeyExists
			}
			return fmt.Errorf("failed to apply batch op on %q: %w", op.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	s.logger.Debug("Applied batch", zap.Int("ops", b.Len()), zap.String("namespace", s.namespace))
	return nil
}

func (s *SQLStore) ScanPrefix(ctx context.Context, prefix string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, scanSQL, s.namespace, prefix, utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to scan prefix: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("failed to read scan row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scan rows: %w", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("Storage service closed")
	return s.db.Close()
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
