package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteAdapter persists client state in a single key/value table. It is
// the durable backend for deployments without redis.
type SQLiteAdapter struct {
	db *sql.DB
}

func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	// Создаем директорию для БД, если её нет
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	query := `CREATE TABLE IF NOT EXISTS client_state (
            key TEXT PRIMARY KEY,
            value BLOB NOT NULL,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`
	if err := execWithRetry(db, query); err != nil {
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}

	return &SQLiteAdapter{db: db}, nil
}

func (a *SQLiteAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := a.db.QueryRowContext(ctx, `SELECT value FROM client_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read client state: %w", err)
	}
	return value, nil
}

func (a *SQLiteAdapter) Set(ctx context.Context, key string, value []byte) error {
	query := `INSERT INTO client_state (key, value, updated_at) VALUES (?, ?, ?)
              ON CONFLICT(key) DO UPDATE SET
                value = excluded.value,
                updated_at = excluded.updated_at`
	if _, err := a.db.ExecContext(ctx, query, key, value, time.Now()); err != nil {
		return fmt.Errorf("failed to write client state: %w", err)
	}
	return nil
}

func (a *SQLiteAdapter) Delete(ctx context.Context, key string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM client_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete client state: %w", err)
	}
	return nil
}

func (a *SQLiteAdapter) Close() error {
	return a.db.Close()
}

// execWithRetry retries a statement a few times on SQLITE_BUSY. Two gateway
// replicas sharing one file hit this during table creation.
func execWithRetry(db *sql.DB, query string) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if _, err = db.Exec(query); err == nil {
			return nil
		}
		time.Sleep(time.Duration(attempt+1) * 100 * time.Millisecond)
	}
	return err
}
