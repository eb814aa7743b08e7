package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	"cargotrack/pkg/platform/sentinel"
)

// Dialect selects SQL placeholders and column types.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DriverName returns the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// DefaultSnapshotName is the row the model is saved under.
const DefaultSnapshotName = "default"

// SQLStore keeps snapshots in the cargo_snapshots table, one row per name.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	name    string
	codec   Codec
}

// Open connects to dsn with the dialect's driver and verifies the connection.
func Open(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// a single connection keeps in-memory databases alive and serializes writers
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return db, nil
}

// NewSQLStore constructs a store on db. Empty name and nil codec fall back to
// DefaultSnapshotName and JSON.
func NewSQLStore(db *sql.DB, dialect Dialect, name string, codec Codec) *SQLStore {
	if name == "" {
		name = DefaultSnapshotName
	}
	if codec == nil {
		codec = JSONCodec{}
	}
	return &SQLStore{db: db, dialect: dialect, name: name, codec: codec}
}

// InitSchema creates the snapshot table if it does not exist.
func (s *SQLStore) InitSchema(ctx context.Context) error {
	blob := "BLOB"
	if s.dialect == DialectPostgres {
		blob = "BYTEA"
	}
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS cargo_snapshots (
			name TEXT PRIMARY KEY,
			codec TEXT NOT NULL,
			payload %s NOT NULL,
			saved_at BIGINT NOT NULL
		)`, blob)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create cargo_snapshots: %w", err)
	}
	return nil
}

func (s *SQLStore) placeholders(n int) []any {
	out := make([]any, n)
	for i := range out {
		if s.dialect == DialectPostgres {
			out[i] = fmt.Sprintf("$%d", i+1)
		} else {
			out[i] = "?"
		}
	}
	return out
}

func (s *SQLStore) Save(ctx context.Context, snap *Snapshot) error {
	data, err := s.codec.Encode(snap)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		INSERT INTO cargo_snapshots (name, codec, payload, saved_at)
		VALUES (%s, %s, %s, %s)
		ON CONFLICT (name) DO UPDATE SET
			codec = excluded.codec,
			payload = excluded.payload,
			saved_at = excluded.saved_at`, s.placeholders(4)...)
	_, err = s.db.ExecContext(ctx, query, s.name, s.codec.Name(), data, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *SQLStore) Load(ctx context.Context) (*Snapshot, error) {
	query := fmt.Sprintf(`SELECT codec, payload, saved_at FROM cargo_snapshots WHERE name = %s`, s.placeholders(1)...)
	var (
		codecName string
		payload   []byte
		savedAt   int64
	)
	err := s.db.QueryRowContext(ctx, query, s.name).Scan(&codecName, &payload, &savedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("snapshot %s: %w", s.name, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if codecName != s.codec.Name() {
		return nil, fmt.Errorf("snapshot encoded as %s, store expects %s", codecName, s.codec.Name())
	}
	snap, err := s.codec.Decode(payload)
	if err != nil {
		return nil, err
	}
	snap.SavedAt = time.Unix(0, savedAt)
	return snap, nil
}
