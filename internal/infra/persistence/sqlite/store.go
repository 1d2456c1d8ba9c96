// Package sqlite stores fixture bundles in a SQLite database, one JSON payload
// row per bundle and entity kind.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"editfixture/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const defaultPath = "editfixture.db"

// Store is a fixture source backed by a single SQLite table.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (creating if needed) the database at path and ensures the
// fixtures table exists.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS fixtures (
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		payload BLOB NOT NULL,
		PRIMARY KEY (name, kind)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create fixtures table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Load reads the named bundle.
func (s *Store) Load(ctx context.Context, name string) (domain.Bundle, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, payload FROM fixtures WHERE name = ?`, name)
	if err != nil {
		return domain.Bundle{}, fmt.Errorf("select fixture: %w", err)
	}
	defer func() { _ = rows.Close() }()
	payloads := map[string][]byte{}
	for rows.Next() {
		var kind string
		var payload []byte
		if err := rows.Scan(&kind, &payload); err != nil {
			return domain.Bundle{}, fmt.Errorf("scan: %w", err)
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
			return nil, fmt.Errorf("scan: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Save writes every kind of the bundle in one transaction, replacing any
// bundle stored under the same name.
func (s *Store) Save(ctx context.Context, bundle domain.Bundle) (retErr error) {
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
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, kind := range domain.BundleKinds {
		if _, err = tx.ExecContext(ctx, `INSERT INTO fixtures(name,kind,payload) VALUES(?,?,?) ON CONFLICT(name,kind) DO UPDATE SET payload=excluded.payload`, bundle.Name, kind, payloads[kind]); err != nil {
			retErr = fmt.Errorf("upsert %s/%s: %w", bundle.Name, kind, err)
			return retErr
		}
	}
	return tx.Commit()
}

// Delete removes the named bundle, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM fixtures WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete fixture: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
