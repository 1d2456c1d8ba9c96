package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"editfixture/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "nested", "fixtures.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func bundle(name string, blocks int) domain.Bundle {
	b := domain.Bundle{
		Name:      name,
		Projects:  []domain.Project{{Base: domain.Base{ID: "p"}, Name: name}},
		Chapters:  []domain.Chapter{{Base: domain.Base{ID: "c"}, ProjectID: "p"}},
		Timelines: []domain.Timeline{{Base: domain.Base{ID: "t"}, ChapterID: "c", Type: "video"}},
	}
	for i := 0; i < blocks; i++ {
		end := int64(10)
		b.Blocks = append(b.Blocks, domain.Block{
			Base:                   domain.Base{ID: string(rune('a' + i))},
			TimelineID:             "t",
			TimelineOffsetInFrames: int64(i * 10),
			FileRelativeEndFrame:   &end,
			OrderIndex:             i,
		})
	}
	return b
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Save(ctx, bundle("interview", 2)))

	got, err := store.Load(ctx, "interview")
	require.NoError(t, err)
	assert.Equal(t, "interview", got.Name)
	assert.Len(t, got.Blocks, 2)
	assert.Equal(t, int64(10), got.Blocks[1].TimelineOffsetInFrames)
	assert.Equal(t, "c", got.Timelines[0].ChapterID)
}

func TestSaveReplacesBundle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Save(ctx, bundle("interview", 3)))
	require.NoError(t, store.Save(ctx, bundle("interview", 1)))

	got, err := store.Load(ctx, "interview")
	require.NoError(t, err)
	assert.Len(t, got.Blocks, 1)

	var rows int
	require.NoError(t, store.DB().QueryRow(`SELECT COUNT(*) FROM fixtures WHERE name = ?`, "interview").Scan(&rows))
	assert.Equal(t, len(domain.BundleKinds), rows)
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	for _, name := range []string{"vlog", "interview", "podcast"} {
		require.NoError(t, store.Save(ctx, bundle(name, 1)))
	}
	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"interview", "podcast", "vlog"}, names)

	ok, err := store.Delete(ctx, "podcast")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Delete(ctx, "podcast")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Load(ctx, "podcast")
	assert.ErrorIs(t, err, domain.ErrFixtureNotFound)
}

func TestSaveRequiresName(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Save(context.Background(), domain.Bundle{}))
}

func TestReopenKeepsBundles(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fixtures.db")
	first, err := NewStore(path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	require.NoError(t, first.Save(ctx, bundle("interview", 2)))
	require.NoError(t, first.Close())

	second, err := NewStore(path)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()
	assert.Equal(t, path, second.Path())
	got, err := second.Load(ctx, "interview")
	require.NoError(t, err)
	assert.Len(t, got.Blocks, 2)
}
