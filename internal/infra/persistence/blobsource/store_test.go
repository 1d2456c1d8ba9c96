package blobsource

import (
	"context"
	"strings"
	"testing"

	"editfixture/internal/blob"
	"editfixture/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(name string) domain.Bundle {
	end := int64(30)
	asset := "a"
	return domain.Bundle{
		Name:        name,
		Projects:    []domain.Project{{Base: domain.Base{ID: "p"}, Name: name}},
		MediaAssets: []domain.MediaAsset{{Base: domain.Base{ID: "a"}, ProjectID: "p"}},
		Blocks:      []domain.Block{{Base: domain.Base{ID: "b"}, TimelineID: "t", MediaAssetID: &asset, FileRelativeEndFrame: &end}},
		Enrichment:  map[string]domain.Enrichment{"a": {Faces: []domain.Face{{ID: "f"}}}},
	}
}

func backends() map[string]func() blob.Store {
	return map[string]func() blob.Store{
		"memory": blob.NewMemory,
		"s3":     blob.NewMockS3ForTests,
	}
}

func TestSaveLoadListDelete(t *testing.T) {
	for name, newBackend := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			backend := newBackend()
			store := New(backend)
			require.NoError(t, store.Save(ctx, sample("vlog")))
			require.NoError(t, store.Save(ctx, sample("interview")))
			require.NoError(t, store.Save(ctx, sample("interview")))

			info, err := backend.Head(ctx, Key("interview"))
			require.NoError(t, err)
			assert.Equal(t, "application/json", info.ContentType)

			got, err := store.Load(ctx, "interview")
			require.NoError(t, err)
			assert.Equal(t, "interview", got.Name)
			assert.Len(t, got.Enrichment["a"].Faces, 1)
			assert.Equal(t, int64(30), *got.Blocks[0].FileRelativeEndFrame)

			names, err := store.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"interview", "vlog"}, names)

			ok, err := store.Delete(ctx, "vlog")
			require.NoError(t, err)
			assert.True(t, ok)
			_, err = store.Load(ctx, "vlog")
			assert.ErrorIs(t, err, domain.ErrFixtureNotFound)
			assert.NoError(t, store.Close())
		})
	}
}

func TestLoadUsesKeyName(t *testing.T) {
	ctx := context.Background()
	backend := blob.NewMemory()
	_, err := backend.Put(ctx, Key("renamed"), strings.NewReader(`{"name":"original","projects":[]}`), blob.PutOptions{})
	require.NoError(t, err)
	_, err = backend.Put(ctx, "fixtures/notes.txt", strings.NewReader("x"), blob.PutOptions{})
	require.NoError(t, err)

	store := New(backend)
	got, err := store.Load(ctx, "renamed")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"renamed"}, names)
}

func TestLoadRejectsCorruptDocument(t *testing.T) {
	ctx := context.Background()
	backend := blob.NewMemory()
	_, err := backend.Put(ctx, Key("broken"), strings.NewReader("{"), blob.PutOptions{})
	require.NoError(t, err)
	_, err = New(backend).Load(ctx, "broken")
	assert.ErrorContains(t, err, "decode fixture")
	assert.Error(t, New(backend).Save(ctx, domain.Bundle{}))
}
