package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blackmichael/karma-feed/internal/domain"
	_ "modernc.org/sqlite"
)

// Storage keys for the two persisted credential values.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

const schema = `
	CREATE TABLE IF NOT EXISTS credentials (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`

// Repository implements domain.CredentialStore on a local SQLite file so
// that a session outlives the process.
type Repository struct {
	db *sql.DB
}

// NewRepository opens (creating if needed) the SQLite database at path and
// ensures the schema exists. The caller should call Close when the
// repository is no longer needed.
func NewRepository(path string) (*Repository, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises
	// writers on the file.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Load returns the stored credentials. Missing keys load as empty strings.
func (r *Repository) Load(ctx context.Context) (domain.Credentials, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, value FROM credentials WHERE key IN (?, ?)`,
		AccessTokenKey, RefreshTokenKey,
	)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("query credentials: %w", err)
	}
	defer rows.Close()

	var creds domain.Credentials
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return domain.Credentials{}, fmt.Errorf("scan credential: %w", err)
		}
		switch key {
		case AccessTokenKey:
			creds.Access = value
		case RefreshTokenKey:
			creds.Refresh = value
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Credentials{}, fmt.Errorf("iterate credentials: %w", err)
	}

	return creds, nil
}

// Save upserts both credential values in one transaction.
func (r *Repository) Save(ctx context.Context, creds domain.Credentials) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, kv := range [...]struct{ key, value string }{
		{AccessTokenKey, creds.Access},
		{RefreshTokenKey, creds.Refresh},
	} {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO credentials (key, value, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			kv.key, kv.value, now,
		)
		if err != nil {
			return fmt.Errorf("save %s: %w", kv.key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Clear deletes both credential values in a single statement.
func (r *Repository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE key IN (?, ?)`,
		AccessTokenKey, RefreshTokenKey,
	)
	if err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

