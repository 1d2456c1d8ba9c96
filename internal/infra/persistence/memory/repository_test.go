package memory

import (
	"errors"
	"testing"

	"editfixture/pkg/domain"
	"editfixture/pkg/domain/settings"
)

func TestCreateAssignsIDsAndTimestamps(t *testing.T) {
	store := newTestStore(t)
	p, err := store.CreateProject(Project{Name: "Untitled"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if p.ID != "gen-001" {
		t.Fatalf("expected generated id, got %q", p.ID)
	}
	if p.CreatedAt.IsZero() || !p.CreatedAt.Equal(p.UpdatedAt) {
		t.Fatalf("expected matching created/updated timestamps, got %v / %v", p.CreatedAt, p.UpdatedAt)
	}
	if _, err := store.CreateProject(Project{Base: domain.Base{ID: p.ID}}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestCreateRequiresParents(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.CreateChapter(Chapter{ProjectID: "missing"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected missing project error, got %v", err)
	}
	if _, err := store.CreateTimeline(Timeline{ChapterID: "missing"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected missing chapter error, got %v", err)
	}
	if _, err := store.CreateBlock(Block{TimelineID: "missing"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected missing timeline error, got %v", err)
	}
	if _, err := store.CreateMediaAsset(MediaAsset{ProjectID: "missing"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected missing project error, got %v", err)
	}

	tr := seedTree(t, store)
	b := clip("b", tr.timeline.ID, 0, 0, 10, 0)
	b.MediaAssetID = strPtr("ghost")
	var nf domain.NotFoundError
	if _, err := store.CreateBlock(b); !errors.As(err, &nf) || nf.Entity != domain.EntityMediaAsset {
		t.Fatalf("expected media asset not found, got %v", err)
	}
	if _, err := store.CreateBlock(clip("bad", tr.timeline.ID, 0, 50, 10, 0)); !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("expected invalid range for end before start, got %v", err)
	}
}

func TestGetMissingReturnsFalse(t *testing.T) {
	store := newTestStore(t)
	if _, ok := store.GetProject("missing"); ok {
		t.Fatalf("expected missing project")
	}
	if _, ok := store.GetChapter("missing"); ok {
		t.Fatalf("expected missing chapter")
	}
	if _, ok := store.GetTimeline("missing"); ok {
		t.Fatalf("expected missing timeline")
	}
	if _, ok := store.GetBlock("missing"); ok {
		t.Fatalf("expected missing block")
	}
	if _, ok := store.GetMediaAsset("missing"); ok {
		t.Fatalf("expected missing media asset")
	}
}

func TestUpdateRefreshesModifiedAndKeepsIdentity(t *testing.T) {
	store := newTestStore(t)
	tr := seedTree(t, store)
	updated, err := store.UpdateTimeline(tr.timeline.ID, func(tl *Timeline) error {
		tl.ID = "hijack"
		tl.Label = "B-roll"
		return nil
	})
	if err != nil {
		t.Fatalf("update timeline: %v", err)
	}
	if updated.ID != tr.timeline.ID || updated.Label != "B-roll" {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if !updated.UpdatedAt.After(tr.timeline.UpdatedAt) {
		t.Fatalf("expected UpdatedAt to advance")
	}
	if !updated.CreatedAt.Equal(tr.timeline.CreatedAt) {
		t.Fatalf("expected CreatedAt preserved")
	}
	if _, err := store.UpdateTimeline("missing", func(*Timeline) error { return nil }); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	boom := errors.New("boom")
	if _, err := store.UpdateChapter(tr.chapter.ID, func(*Chapter) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected mutator error, got %v", err)
	}
	if _, err := store.UpdateChapter(tr.chapter.ID, func(c *Chapter) error { c.ProjectID = "nope"; return nil }); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected reparent validation, got %v", err)
	}
}

func TestUpdateWritesSettingsThrough(t *testing.T) {
	store := newTestStore(t)
	tr := seedTree(t, store)
	b := mustBlock(t, store, clip("b", tr.timeline.ID, 0, 0, 10, 0))
	if _, err := store.UpdateBlock(b.ID, func(b *Block) error {
		b.Settings = settings.Map{"volume": settings.Number(0.5)}
		return nil
	}); err != nil {
		t.Fatalf("update block: %v", err)
	}
	v, ok := store.Setting(domain.EntityBlock, b.ID, "volume")
	if n, isNum := v.Num(); !ok || !isNum || n != 0.5 {
		t.Fatalf("expected overlay to mirror embedded settings, got %v %v", v, ok)
	}
	if _, err := store.UpdateProject(tr.project.ID, func(p *Project) error {
		p.Settings = settings.Map{"fps": settings.Number(24)}
		return nil
	}); !errors.Is(err, settings.ErrNotString) {
		t.Fatalf("expected string-only project settings, got %v", err)
	}
}

func TestDeleteMediaAssetReferentialGuard(t *testing.T) {
	store := newTestStore(t)
	tr := seedTree(t, store)
	asset, err := store.CreateMediaAsset(MediaAsset{ProjectID: tr.project.ID, MediaType: "video", FileName: "a.mp4"})
	if err != nil {
		t.Fatalf("create asset: %v", err)
	}
	b := clip("b", tr.timeline.ID, 0, 0, 10, 0)
	b.MediaAssetID = strPtr(asset.ID)
	mustBlock(t, store, b)

	deleted, err := store.DeleteMediaAsset(asset.ID)
	if !errors.Is(err, domain.ErrReferentialIntegrity) || deleted {
		t.Fatalf("expected refused delete, got %v %v", deleted, err)
	}
	var ref domain.ReferencedError
	if !errors.As(err, &ref) || len(ref.RefIDs) != 1 || ref.RefIDs[0] != "b" {
		t.Fatalf("expected referencing block ids, got %+v", ref)
	}
	if _, ok := store.GetMediaAsset(asset.ID); !ok {
		t.Fatalf("asset must survive refused delete")
	}
	if !store.DeleteBlock("b") {
		t.Fatalf("expected block delete")
	}
	deleted, err = store.DeleteMediaAsset(asset.ID)
	if err != nil || !deleted {
		t.Fatalf("expected delete to succeed after unreferencing, got %v %v", deleted, err)
	}
	deleted, err = store.DeleteMediaAsset(asset.ID)
	if err != nil || deleted {
		t.Fatalf("expected silent no-op for missing asset, got %v %v", deleted, err)
	}
}

func TestDeleteCascadesDownOwnershipChain(t *testing.T) {
	store := newTestStore(t)
	tr := seedTree(t, store)
	mustBlock(t, store, clip("b1", tr.timeline.ID, 0, 0, 10, 0))
	if err := store.SetSetting(domain.EntityTimeline, tr.timeline.ID, "track.muted", settings.Bool(true)); err != nil {
		t.Fatalf("set timeline setting: %v", err)
	}
	if err := store.SetSetting(domain.EntityChapter, tr.chapter.ID, "mood", settings.String("calm")); err != nil {
		t.Fatalf("set chapter setting: %v", err)
	}
	if !store.DeleteChapter(tr.chapter.ID) {
		t.Fatalf("expected chapter delete")
	}
	if _, ok := store.GetTimeline(tr.timeline.ID); ok {
		t.Fatalf("expected timeline cascade")
	}
	if _, ok := store.GetBlock("b1"); ok {
		t.Fatalf("expected block cascade")
	}
	if len(store.Settings(domain.EntityChapter, tr.chapter.ID)) != 0 || len(store.Settings(domain.EntityTimeline, tr.timeline.ID)) != 0 {
		t.Fatalf("expected overlays removed with their owners")
	}
	if store.DeleteChapter(tr.chapter.ID) {
		t.Fatalf("expected no-op on second delete")
	}
}

func TestDeleteProjectRefusedByForeignReference(t *testing.T) {
	store := newTestStore(t)
	tr := seedTree(t, store)
	asset, err := store.CreateMediaAsset(MediaAsset{Base: domain.Base{ID: "asset"}, ProjectID: tr.project.ID})
	if err != nil {
		t.Fatalf("create asset: %v", err)
	}
	other, err := store.CreateProject(Project{Base: domain.Base{ID: "other"}})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	oc, _ := store.CreateChapter(Chapter{ProjectID: other.ID})
	ot, _ := store.CreateTimeline(Timeline{ChapterID: oc.ID})
	foreign := clip("foreign", ot.ID, 0, 0, 5, 0)
	foreign.MediaAssetID = strPtr(asset.ID)
	mustBlock(t, store, foreign)

	if _, err := store.DeleteProject(tr.project.ID); !errors.Is(err, domain.ErrReferentialIntegrity) {
		t.Fatalf("expected refusal, got %v", err)
	}
	if _, ok := store.GetChapter(tr.chapter.ID); !ok {
		t.Fatalf("refused delete must leave the store unchanged")
	}
	store.DeleteBlock("foreign")
	deleted, err := store.DeleteProject(tr.project.ID)
	if err != nil || !deleted {
		t.Fatalf("expected project delete, got %v %v", deleted, err)
	}
	if len(store.ListMediaAssets()) != 0 || len(store.ListChapters()) != 1 {
		t.Fatalf("expected owned records gone and foreign chapter kept")
	}
}

func TestCreateBlockCopiesEnrichment(t *testing.T) {
	store := newTestStore(t)
	tr := seedTree(t, store)
	asset, _ := store.CreateMediaAsset(MediaAsset{
		ProjectID: tr.project.ID,
		Faces:     []domain.Face{{ID: "f1", Frames: []int64{1, 2}}},
	})
	b := clip("b", tr.timeline.ID, 0, 0, 10, 0)
	b.MediaAssetID = strPtr(asset.ID)
	created := mustBlock(t, store, b)
	if len(created.Faces) != 1 || created.Faces[0].ID != "f1" {
		t.Fatalf("expected faces copied from asset, got %+v", created.Faces)
	}
	created.Faces[0].Frames[0] = 99
	again, _ := store.GetBlock("b")
	if again.Faces[0].Frames[0] != 1 {
		t.Fatalf("returned blocks must not alias stored enrichment")
	}
	if _, err := store.UpdateMediaAsset(asset.ID, func(a *MediaAsset) error { a.Faces = nil; return nil }); err != nil {
		t.Fatalf("update asset: %v", err)
	}
	again, _ = store.GetBlock("b")
	if len(again.Faces) != 1 {
		t.Fatalf("block enrichment is a copy and must survive asset updates")
	}
}

func TestJournalRecordsMutations(t *testing.T) {
	store := newTestStore(t)
	seedTree(t, store)
	journal := store.Journal()
	if len(journal) != 3 {
		t.Fatalf("expected three create entries, got %d", len(journal))
	}
	if journal[0].Entity != domain.EntityProject || journal[0].Action != domain.ActionCreate {
		t.Fatalf("unexpected first entry %+v", journal[0])
	}
	store.ResetJournal()
	if len(store.Journal()) != 0 {
		t.Fatalf("expected empty journal after reset")
	}
}
