// Package sqldb stores snapshot slots in SQLite or PostgreSQL.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/polyglot-image-studio/internal/core/ports"
	"github.com/tjfontaine/polyglot-image-studio/internal/storage/dialect"
)

// Store is a SQL implementation of ports.SnapshotStore that supports
// multiple database dialects.
type Store struct {
	db      *sqlx.DB
	dialect dialect.Dialect
}

var _ ports.SnapshotStore = (*Store)(nil)

// Config holds database connection configuration
type Config struct {
	Driver string // Driver name: sqlite, postgres
	DSN    string // Data source name / connection string
}

// New opens the database and creates the snapshot table.
func New(cfg Config) (*Store, error) {
	d, err := dialect.FromDriverName(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("unsupported database driver: %w", err)
	}

	db, err := sqlx.Open(d.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, stmt := range d.PragmaStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute pragma: %w", err)
		}
	}

	store := &Store{db: db, dialect: d}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// NewSQLite opens a SQLite database at dsn.
func NewSQLite(dsn string) (*Store, error) {
	return New(Config{Driver: "sqlite", DSN: dsn})
}

// Dialect returns the dialect being used
func (s *Store) Dialect() dialect.Dialect {
	return s.dialect
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS studio_snapshots (
slot TEXT PRIMARY KEY,
data %s NOT NULL,
updated_at %s NOT NULL
)`, s.dialect.BlobType(), s.dialect.TimestampType()))
	return err
}

// Get implements ports.SnapshotStore.
func (s *Store) Get(ctx context.Context, slot string) ([]byte, error) {
	var data []byte
	query := s.dialect.Rebind(`SELECT data FROM studio_snapshots WHERE slot = ?`)
	if err := s.db.GetContext(ctx, &data, query, slot); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to read slot %s: %w", slot, err)
	}
	return data, nil
}

// Put implements ports.SnapshotStore.
func (s *Store) Put(ctx context.Context, slot string, data []byte) error {
	query := s.dialect.Rebind(`INSERT INTO studio_snapshots (slot, data, updated_at) VALUES (?, ?, ?) ` +
		s.dialect.UpsertClause("slot", []string{"data", "updated_at"}))
	if _, err := s.db.ExecContext(ctx, query, slot, data, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", slot, err)
	}
	return nil
}

// Delete implements ports.SnapshotStore.
func (s *Store) Delete(ctx context.Context, slot string) error {
	query := s.dialect.Rebind(`DELETE FROM studio_snapshots WHERE slot = ?`)
	if _, err := s.db.ExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", slot, err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
