package report

import (
	"context"
	"testing"
	"time"

	"editfixture/internal/blob"
	"editfixture/internal/diff"
	"editfixture/internal/infra/persistence/memory"
	"editfixture/pkg/domain"
	"editfixture/pkg/domain/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenario(t *testing.T) (diff.Report, memory.Snapshot, memory.Snapshot) {
	t.Helper()
	end := int64(100)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	store := memory.NewStore(memory.WithClock(func() time.Time { return base }))
	require.NoError(t, store.LoadBundle(domain.Bundle{
		Name:      "interview",
		Projects:  []domain.Project{{Base: domain.Base{ID: "p"}, Name: "Interview"}},
		Chapters:  []domain.Chapter{{Base: domain.Base{ID: "c"}, ProjectID: "p"}},
		Timelines: []domain.Timeline{{Base: domain.Base{ID: "t"}, ChapterID: "c", Type: "video"}},
		Blocks: []domain.Block{{
			Base:                 domain.Base{ID: "A"},
			TimelineID:           "t",
			FileRelativeEndFrame: &end,
			Settings:             settings.Map{"volume": settings.Number(0.8), "tags": settings.List(settings.String("intro"))},
		}},
	}))
	before := store.Snapshot()
	_, _, err := store.SplitBlock("A", 40)
	require.NoError(t, err)
	require.NoError(t, store.SetSetting(domain.EntityTimeline, "t", "muted", settings.Bool(true)))
	after := store.Snapshot()
	rep, err := diff.Compute(before, after, diff.Options{})
	require.NoError(t, err)
	return rep, before, after
}

func TestArchiveRoundTrip(t *testing.T) {
	backends := map[string]func() blob.Store{
		"memory": blob.NewMemory,
		"s3":     blob.NewMockS3ForTests,
	}
	for name, newBackend := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rep, before, after := scenario(t)
			archive := NewArchive(newBackend())

			m, err := archive.Save(ctx, "run-1", rep, before, after)
			require.NoError(t, err)
			assert.Equal(t, "runs/run-1/report.json", m.ReportKey)
			assert.Equal(t, rep.Summary(), m.Summary)

			gotReport, err := archive.LoadReport(ctx, "run-1")
			require.NoError(t, err)
			assert.Equal(t, rep.Summary(), gotReport.Summary())
			require.NotNil(t, gotReport.Blocks)
			assert.Len(t, gotReport.Blocks.Added, 1)

			for which, want := range map[Which]memory.Snapshot{Before: before, After: after} {
				got, err := archive.LoadSnapshot(ctx, "run-1", which)
				require.NoError(t, err)
				identity, err := diff.Compute(want, got, diff.Options{Kinds: []domain.EntityType{
					domain.EntityProject, domain.EntityChapter, domain.EntityTimeline, domain.EntityBlock, domain.EntityMediaAsset,
				}})
				require.NoError(t, err)
				assert.True(t, identity.Empty(), "%s snapshot changed in archive: %s", which, identity)
				assert.True(t, want.TakenAt.Equal(got.TakenAt))
			}
			v, ok := after.TimelineSettings["t"]["muted"].Boolean()
			require.True(t, ok && v)

			runs, err := archive.Runs(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"run-1"}, runs)
		})
	}
}

func TestArchiveIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	rep, before, after := scenario(t)
	archive := NewArchive(blob.NewMemory())
	_, err := archive.Save(ctx, "run-1", rep, before, after)
	require.NoError(t, err)
	_, err = archive.Save(ctx, "run-1", rep, before, after)
	assert.ErrorIs(t, err, blob.ErrExists)
	_, err = archive.Save(ctx, "a/b", rep, before, after)
	assert.ErrorIs(t, err, blob.ErrInvalidKey)
}

func TestArchiveGeneratesRunID(t *testing.T) {
	ctx := context.Background()
	rep, before, after := scenario(t)
	archive := NewArchive(blob.NewMemory())
	archive.newID = func() string { return "generated" }
	m, err := archive.Save(ctx, "", rep, before, after)
	require.NoError(t, err)
	assert.Equal(t, "generated", m.RunID)
	assert.Equal(t, "runs/generated/after.cbor", m.AfterKey)
}

func TestArchiveMissingRunAndLinks(t *testing.T) {
	ctx := context.Background()
	archive := NewArchive(blob.NewMockS3ForTests())
	_, err := archive.LoadReport(ctx, "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = archive.LoadSnapshot(ctx, "nope", After)
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = archive.LoadSnapshot(ctx, "nope", "during")
	assert.Error(t, err)
	_, err = archive.Link(ctx, "nope", time.Minute)
	assert.ErrorIs(t, err, ErrRunNotFound)

	rep, before, after := scenario(t)
	_, err = archive.Save(ctx, "run-2", rep, before, after)
	require.NoError(t, err)
	url, err := archive.Link(ctx, "run-2", 0)
	require.NoError(t, err)
	assert.Contains(t, url, "runs/run-2/report.json")
	assert.Contains(t, url, "X-Amz-Expires=900")

	mem := NewArchive(blob.NewMemory())
	_, err = mem.Save(ctx, "run-3", rep, before, after)
	require.NoError(t, err)
	_, err = mem.Link(ctx, "run-3", time.Minute)
	assert.ErrorIs(t, err, blob.ErrUnsupported)
}
