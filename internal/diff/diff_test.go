package diff

import (
	"encoding/json"
	"errors"
	"testing"

	"editfixture/internal/infra/persistence/memory"
	"editfixture/pkg/domain"
	"editfixture/pkg/domain/settings"
)

func int64Ptr(v int64) *int64 { return &v }

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	if _, err := store.CreateProject(domain.Project{Base: domain.Base{ID: "p"}}); err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, err := store.CreateChapter(domain.Chapter{Base: domain.Base{ID: "c"}, ProjectID: "p"}); err != nil {
		t.Fatalf("create chapter: %v", err)
	}
	if _, err := store.CreateTimeline(domain.Timeline{Base: domain.Base{ID: "t"}, ChapterID: "c"}); err != nil {
		t.Fatalf("create timeline: %v", err)
	}
	for _, id := range []string{"b1", "b2"} {
		_, err := store.CreateBlock(domain.Block{
			Base:                 domain.Base{ID: id},
			TimelineID:           "t",
			FileRelativeEndFrame: int64Ptr(100),
			Settings:             settings.Map{"a": settings.Number(1), "b": settings.String("x")},
		})
		if err != nil {
			t.Fatalf("create block %s: %v", id, err)
		}
	}
	return store
}

func TestSnapshotsWithoutMutationDiffEmpty(t *testing.T) {
	store := seededStore(t)
	report, err := Compute(store.Snapshot(), store.Snapshot(), Options{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !report.Empty() {
		t.Fatalf("expected empty report, got %s", report)
	}
	if report.Blocks == nil || report.Timelines == nil || report.MediaAssets == nil {
		t.Fatalf("expected default kinds tracked")
	}
	if report.Chapters != nil || report.Projects != nil {
		t.Fatalf("chapters and projects are opt-in")
	}
	if report.Blocks.Added == nil || report.Blocks.Modified == nil || report.Blocks.Deleted == nil {
		t.Fatalf("tracked kinds carry non-nil lists")
	}
}

func TestComputeClassifiesChanges(t *testing.T) {
	store := seededStore(t)
	before := store.Snapshot()

	if _, _, err := store.SplitBlock("b1", 30); err != nil {
		t.Fatalf("split: %v", err)
	}
	store.DeleteBlock("b2")
	after := store.Snapshot()

	report, err := Compute(before, after, Options{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(report.Blocks.Added) != 1 || len(report.Blocks.Modified) != 1 || len(report.Blocks.Deleted) != 1 {
		t.Fatalf("unexpected block diff %s", report)
	}
	mod := report.Blocks.Modified[0]
	if mod.ID != "b1" || *mod.Before.FileRelativeEndFrame != 100 || *mod.After.FileRelativeEndFrame != 30 {
		t.Fatalf("unexpected modified entry %+v", mod)
	}
	if report.Blocks.Deleted[0].ID != "b2" {
		t.Fatalf("expected b2 deleted, got %s", report.Blocks.Deleted[0].ID)
	}
	if report.Timelines.Len() != 0 {
		t.Fatalf("timeline untouched, got %d changes", report.Timelines.Len())
	}
}

func TestComputeOptInKinds(t *testing.T) {
	store := seededStore(t)
	before := store.Snapshot()
	if _, err := store.UpdateChapter("c", func(c *domain.Chapter) error { c.Title = "Renamed"; return nil }); err != nil {
		t.Fatalf("update chapter: %v", err)
	}
	after := store.Snapshot()

	report, _ := Compute(before, after, Options{})
	if !report.Empty() {
		t.Fatalf("chapter change must be invisible by default")
	}
	report, err := Compute(before, after, Options{Kinds: []domain.EntityType{domain.EntityChapter, domain.EntityChapter}})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(report.Kinds) != 1 || report.Chapters.Len() != 1 {
		t.Fatalf("expected one chapter change, got %+v", report.Summary())
	}
	if _, err := Compute(before, after, Options{Kinds: []domain.EntityType{"scene"}}); !errors.Is(err, domain.ErrUnsupportedKind) {
		t.Fatalf("expected unsupported kind, got %v", err)
	}
}

func TestEqualIgnoresMapOrderAndNilContainers(t *testing.T) {
	a := domain.Block{Base: domain.Base{ID: "x"}, Settings: settings.Map{"a": settings.Number(1), "b": settings.Bool(true)}}
	b := domain.Block{Base: domain.Base{ID: "x"}, Settings: settings.Map{"b": settings.Bool(true), "a": settings.Number(1)}}
	if !Equal(a, b) {
		t.Fatalf("expected insertion order to be irrelevant")
	}
	empty := domain.Block{Base: domain.Base{ID: "x"}, Settings: settings.Map{}, Faces: []domain.Face{}}
	bare := domain.Block{Base: domain.Base{ID: "x"}}
	if !Equal(empty, bare) {
		t.Fatalf("expected nil and empty containers to compare equal")
	}
	nested := domain.Block{Base: domain.Base{ID: "x"}, Settings: settings.Map{"a": settings.List(settings.Number(1))}}
	other := domain.Block{Base: domain.Base{ID: "x"}, Settings: settings.Map{"a": settings.List(settings.Number(2))}}
	if Equal(nested, other) {
		t.Fatalf("expected nested setting change to be detected")
	}
}

func TestReportJSONShape(t *testing.T) {
	store := seededStore(t)
	report, _ := Compute(memory.Snapshot{}, store.Snapshot(), Options{})
	raw, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	blocks, ok := decoded["blocks"].(map[string]any)
	if !ok {
		t.Fatalf("expected blocks section, got %v", decoded)
	}
	for _, key := range []string{"added", "modified", "deleted"} {
		if _, ok := blocks[key].([]any); !ok {
			t.Fatalf("expected %s list in blocks section", key)
		}
	}
	if _, ok := decoded["chapters"]; ok {
		t.Fatalf("untracked kinds must be omitted")
	}
	summary := report.Summary()
	if summary[0].Kind != domain.EntityBlock || summary[0].Added != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
