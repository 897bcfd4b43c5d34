package savestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tatianab/keepsake/internal/models"
	"github.com/tatianab/keepsake/internal/snapshot"
)

// SQLite stores every save as a row holding a zstd-packed JSON snapshot.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS saves (
		name TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		vitality INTEGER NOT NULL,
		end_reason TEXT NOT NULL,
		saved_at TEXT NOT NULL
	);`)
	return err
}

func (s *SQLite) Save(ctx context.Context, name string, snap models.Snapshot) error {
	if err := checkName(name); err != nil {
		return err
	}
	payload, err := snapshot.Pack(snap)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO saves (name, payload, vitality, end_reason, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			payload = excluded.payload,
			vitality = excluded.vitality,
			end_reason = excluded.end_reason,
			saved_at = excluded.saved_at`,
		name, payload, snap.Vitality.Current, snap.EndReason.String(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save %q: %w", name, err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context, name string) (models.Snapshot, error) {
	if err := checkName(name); err != nil {
		return models.Snapshot{}, err
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM saves WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Snapshot{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("load %q: %w", name, err)
	}
	return snapshot.Unpack(payload)
}

func (s *SQLite) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM saves ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
