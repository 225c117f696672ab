package store

import (
	"context"
	"database/sql"
	"errors"
)

const (
	upsertRecordSQL = `
		INSERT INTO records (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value
	`

	selectRecordSQL = `SELECT value FROM records WHERE key=?`
)

// KV is a key-value view over the records table.
type KV struct {
	db *sql.DB
}

// NewKV wraps an open database.
func NewKV(db *sql.DB) *KV {
	return &KV{db: db}
}

// Get returns the value for key. found is false when the key does not exist.
func (kv *KV) Get(ctx context.Context, key string) (value []byte, found bool, err error) {
	row := kv.db.QueryRowContext(ctx, selectRecordSQL, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

// Put inserts or replaces the value for key.
func (kv *KV) Put(ctx context.Context, key string, value []byte) error {
	_, err := kv.db.ExecContext(ctx, upsertRecordSQL, key, value)
	return err
}
