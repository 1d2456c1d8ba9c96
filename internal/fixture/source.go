// Package fixture loads fixture bundles from a configured source and hands
// them to the in-memory store.
package fixture

import (
	"context"
	"fmt"
	"io"

	"editfixture/internal/blob"
	"editfixture/internal/config"
	"editfixture/internal/infra/persistence/blobsource"
	"editfixture/internal/infra/persistence/postgres"
	"editfixture/internal/infra/persistence/sqlite"
	"editfixture/pkg/domain"
)

// ErrNotFound is returned when a source has no bundle under the requested name.
var ErrNotFound = domain.ErrFixtureNotFound

// Source reads named fixture bundles.
type Source interface {
	Load(ctx context.Context, name string) (domain.Bundle, error)
	List(ctx context.Context) ([]string, error)
}

// Store is a Source that can also write and remove bundles.
type Store interface {
	Source
	io.Closer
	Save(ctx context.Context, bundle domain.Bundle) error
	Delete(ctx context.Context, name string) (bool, error)
}

// Compile-time contract assertions.
var (
	_ Store = (*sqlite.Store)(nil)
	_ Store = (*postgres.Store)(nil)
	_ Store = (*blobsource.Store)(nil)
)

// Open constructs the store selected by cfg.SourceDriver.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.SourceDriver {
	case "", config.SourceSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case config.SourcePostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	case config.SourceBlob:
		blobs, err := blob.Open(ctx, cfg.Blob)
		if err != nil {
			return nil, fmt.Errorf("open blob store: %w", err)
		}
		return blobsource.New(blobs), nil
	default:
		return nil, fmt.Errorf("unknown source driver %q", cfg.SourceDriver)
	}
}

// Ingest loads the named bundle from src and ingests it into dst.
func Ingest(ctx context.Context, src Source, name string, dst domain.Ingester) (domain.Bundle, error) {
	bundle, err := src.Load(ctx, name)
	if err != nil {
		return domain.Bundle{}, fmt.Errorf("load fixture %q: %w", name, err)
	}
	if err := dst.LoadBundle(bundle); err != nil {
		return domain.Bundle{}, fmt.Errorf("ingest fixture %q: %w", name, err)
	}
	return bundle, nil
}

// Copy reads every bundle from src and saves it into dst. It returns the
// names copied.
func Copy(ctx context.Context, src Source, dst Store) ([]string, error) {
	names, err := src.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		bundle, err := src.Load(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("load fixture %q: %w", name, err)
		}
		if err := dst.Save(ctx, bundle); err != nil {
			return nil, fmt.Errorf("save fixture %q: %w", name, err)
		}
	}
	return names, nil
}
