package storage

import (
	"context"
	"fmt"
)

// kvTableSQL is shared by the sqlite and rqlite backends. TEXT keys compare
// with BINARY collation, so ORDER BY key is raw byte order.
const kvTableSQL = `
	CREATE TABLE IF NOT EXISTS kv_storage (
		namespace TEXT NOT NULL,
		key TEXT NOT NULL COLLATE BINARY,
		value BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (namespace, key)
	)
`

const (
	upsertSQL = `
		INSERT INTO kv_storage (namespace, key, value) VALUES (?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`
	insertSQL       = `INSERT INTO kv_storage (namespace, key, value) VALUES (?, ?, ?)`
	insertIgnoreSQL = `INSERT INTO kv_storage (namespace, key, value) VALUES (?, ?, ?) ON CONFLICT(namespace, key) DO NOTHING`
	getSQL          = `SELECT value FROM kv_storage WHERE namespace = ? AND key = ?`
	existsSQL       = `SELECT 1 FROM kv_storage WHERE namespace = ? AND key = ? LIMIT 1`
	// substr counts characters, so the prefix length argument is a rune count.
	scanSQL = `
		SELECT key, value FROM kv_storage
		WHERE namespace = ? AND key >= ? AND substr(key, 1, ?) = ?
		ORDER BY key
	`
)

// initTables creates the key-value table
func (s *SQLStore) initTables(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, kvTableSQL); err != nil {
		return fmt.Errorf("failed to create storage table: %w", err)
	}

	s.logger.Debug("Storage tables initialized")
	return nil
}
