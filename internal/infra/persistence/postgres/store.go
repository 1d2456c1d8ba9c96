// Package postgres stores fixture bundles in Postgres, one JSONB payload row
// per bundle and entity kind.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"editfixture/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/editfixture?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store is a fixture source backed by a Postgres table.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a connection using dsn (falls back to defaultDSN), pings it
// and ensures the fixtures table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureFixturesTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureFixturesTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS fixtures (
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		payload JSONB NOT NULL,
		PRIMARY KEY (name, kind)
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure fixtures table: %w", err)
	}
	return nil
}

// Load reads the named bundle.
func (s *Store) Load(ctx context.Context, name string) (domain.Bundle, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, payload FROM fixtures WHERE name = $1`, name)
	if err != nil {
		return domain.Bundle{}, fmt.Errorf("select fixture: %w", err)
	}
	defer func() { _ = rows.Close() }()
	payloads := map[string][]byte{}
	for rows.Next() {
		var kind string
		var payload []byte
		if err := rows.Scan(&kind, &payload); err != nil {
			return domain.Bundle{}, fmt.Errorf("scan fixture: %w", err)
		}
		payloads[kind] = payload
	}
	if err := rows.Err(); err != nil {
		return domain.Bundle{}, fmt.Errorf("iterate fixture: %w", err)
	}
	if len(payloads) == 0 {
		return domain.Bundle{}, fmt.Errorf("%q: %w", name, domain.ErrFixtureNotFound)
	}
	return domain.DecodeBundle(name, payloads)
}

// List returns the stored bundle names in ascending order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT name FROM fixtures ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select names: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate names: %w", err)
	}
	return names, nil
}

// Save upserts every kind of the bundle in one transaction.
func (s *Store) Save(ctx context.Context, bundle domain.Bundle) error {
	if bundle.Name == "" {
		return fmt.Errorf("save fixture: name required")
	}
	payloads, err := bundle.EncodeKinds()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, kind := range domain.BundleKinds {
		if _, err := tx.ExecContext(ctx, `INSERT INTO fixtures(name,kind,payload) VALUES($1,$2,$3) ON CONFLICT(name,kind) DO UPDATE SET payload=EXCLUDED.payload`, bundle.Name, kind, payloads[kind]); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", bundle.Name, kind, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// Delete removes the named bundle, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM fixtures WHERE name = $1`, name)
	if err != nil {
		return false, fmt.Errorf("delete fixture: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
