package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/amaydixit11/urlshare/internal/slot"
	"github.com/amaydixit11/urlshare/internal/storage"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Config for a SQLite-backed substrate.
type Config struct {
	// Path is the database file. ":memory:" creates a private in-memory DB.
	Path string

	// MaxValuesPerSlot keeps only the newest N blobs per slot (0 = unlimited)
	MaxValuesPerSlot int
}

// SQLiteStore is a multi-value substrate in a single database file.
// Several processes can share the file; every Put appends a row.
type SQLiteStore struct {
	db        *sql.DB
	maxValues int
}

// New opens (or creates) the store described by cfg.
func New(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite store: empty path")
	}

	dsn := cfg.Path + "?_busy_timeout=5000"
	if cfg.Path != ":memory:" {
		dsn += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.Path == ":memory:" {
		// each connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &SQLiteStore{db: db, maxValues: cfg.MaxValuesPerSlot}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database tables if they don't exist
func (s *SQLiteStore) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS slot_values (
			id TEXT PRIMARY KEY,
			slot_key BLOB NOT NULL,
			blob BLOB NOT NULL,
			stored_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_slot_values_key ON slot_values(slot_key, stored_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Put appends a blob to the slot and prunes old rows if a limit is set.
func (s *SQLiteStore) Put(ctx context.Context, key slot.Key, blob []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Wrap("put", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO slot_values (id, slot_key, blob, stored_at)
		VALUES (?, ?, ?, ?)
	`, uuid.New().String(), key.Bytes(), blob, time.Now().UnixNano())
	if err != nil {
		return storage.Wrap("put", fmt.Errorf("failed to insert value: %w", err))
	}

	if s.maxValues > 0 {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM slot_values
			WHERE slot_key = ? AND id NOT IN (
				SELECT id FROM slot_values
				WHERE slot_key = ?
				ORDER BY stored_at DESC, rowid DESC
				LIMIT ?
			)
		`, key.Bytes(), key.Bytes(), s.maxValues)
		if err != nil {
			return storage.Wrap("put", fmt.Errorf("failed to prune values: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return storage.Wrap("put", err)
	}
	return nil
}

// Get returns every blob stored for the slot, oldest first.
func (s *SQLiteStore) Get(ctx context.Context, key slot.Key) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT blob FROM slot_values
		WHERE slot_key = ?
		ORDER BY stored_at ASC, rowid ASC
	`, key.Bytes())
	if err != nil {
		return nil, storage.Wrap("get", fmt.Errorf("failed to query values: %w", err))
	}
	defer rows.Close()

	var blobs [][]byte
	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return nil, storage.Wrap("get", err)
		}
		blobs = append(blobs, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Wrap("get", err)
	}

	return blobs, nil
}

// Count returns the number of rows held for the slot.
func (s *SQLiteStore) Count(ctx context.Context, key slot.Key) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM slot_values WHERE slot_key = ?", key.Bytes()).Scan(&n)
	return n, err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
