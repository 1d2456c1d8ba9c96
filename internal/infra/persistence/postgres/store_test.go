package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"editfixture/internal/infra/persistence/postgres/testutil"
	"editfixture/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(driver, dsn string) (*sql.DB, error) {
		assert.Equal(t, defaultDriver, driver)
		assert.Equal(t, defaultDSN, dsn)
		return db, nil
	})
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "")
	require.NoError(t, err)
	return store, conn
}

func sample(name string) domain.Bundle {
	end := int64(24)
	return domain.Bundle{
		Name:      name,
		Projects:  []domain.Project{{Base: domain.Base{ID: "p"}, Name: name}},
		Timelines: []domain.Timeline{{Base: domain.Base{ID: "t"}, ChapterID: "c"}},
		Blocks:    []domain.Block{{Base: domain.Base{ID: "b"}, TimelineID: "t", FileRelativeEndFrame: &end}},
	}
}

func TestNewStoreEnsuresTable(t *testing.T) {
	_, conn := openStub(t)
	require.NotEmpty(t, conn.Execs)
	assert.Contains(t, strings.ToUpper(conn.Execs[0]), "CREATE TABLE IF NOT EXISTS FIXTURES")
	assert.Contains(t, conn.Execs[0], "JSONB")
}

func TestSaveLoadListDelete(t *testing.T) {
	ctx := context.Background()
	store, conn := openStub(t)
	require.NoError(t, store.Save(ctx, sample("vlog")))
	require.NoError(t, store.Save(ctx, sample("interview")))
	require.NoError(t, store.Save(ctx, sample("interview")))
	assert.Len(t, conn.Tables["fixtures"], 2*len(domain.BundleKinds))

	got, err := store.Load(ctx, "interview")
	require.NoError(t, err)
	assert.Equal(t, "interview", got.Projects[0].Name)
	require.Len(t, got.Blocks, 1)
	assert.Equal(t, int64(24), *got.Blocks[0].FileRelativeEndFrame)

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"interview", "vlog"}, names)

	ok, err := store.Delete(ctx, "vlog")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Delete(ctx, "vlog")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Load(ctx, "vlog")
	assert.True(t, errors.Is(err, domain.ErrFixtureNotFound))
}

func TestSaveRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	store, conn := openStub(t)
	assert.Error(t, store.Save(ctx, domain.Bundle{}))

	conn.FailBegin = true
	assert.Error(t, store.Save(ctx, sample("a")))
	conn.FailBegin = false

	conn.FailCommit = true
	assert.ErrorContains(t, store.Save(ctx, sample("a")), "commit")
	conn.FailCommit = false

	conn.FailTables = map[string]bool{"fixtures": true}
	assert.ErrorContains(t, store.Save(ctx, sample("a")), "upsert a/projects")
	_, err := store.List(ctx)
	assert.Error(t, err)
}

func TestLoadSurfacesDecodeAndRowErrors(t *testing.T) {
	ctx := context.Background()
	store, conn := openStub(t)
	conn.Tables["fixtures"] = []map[string]any{{"name": "bad", "kind": "blocks", "payload": []byte("{")}}
	_, err := store.Load(ctx, "bad")
	assert.ErrorContains(t, err, "decode blocks")

	conn.RowsErr = errors.New("connection reset")
	_, err = store.Load(ctx, "missing")
	assert.ErrorContains(t, err, "connection reset")
}

func TestNewStoreFailures(t *testing.T) {
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, errors.New("dial") })
	_, err := NewStore(context.Background(), "postgres://example")
	restore()
	assert.ErrorContains(t, err, "open postgres")

	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore = OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	_, err = NewStore(context.Background(), "")
	assert.ErrorContains(t, err, "ping postgres")
}
