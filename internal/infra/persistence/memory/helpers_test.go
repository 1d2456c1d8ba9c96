package memory

import (
	"fmt"
	"testing"
	"time"

	"editfixture/pkg/domain"
)

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }

// newTestStore returns a store with a stepping clock and sequential ids so
// tests can assert exact timestamps and identifiers.
func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	seq := 0
	defaults := []Option{
		WithClock(func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		}),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("gen-%03d", seq)
		}),
	}
	return NewStore(append(defaults, opts...)...)
}

type tree struct {
	project  Project
	chapter  Chapter
	timeline Timeline
}

func seedTree(t *testing.T, s *Store) tree {
	t.Helper()
	p, err := s.CreateProject(Project{Base: domain.Base{ID: "proj"}, Name: "Launch video"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	c, err := s.CreateChapter(Chapter{Base: domain.Base{ID: "chap"}, ProjectID: p.ID, Title: "Intro", OrderIndex: 0})
	if err != nil {
		t.Fatalf("create chapter: %v", err)
	}
	tl, err := s.CreateTimeline(Timeline{Base: domain.Base{ID: "tl"}, ChapterID: c.ID, Type: "video", Label: "Main"})
	if err != nil {
		t.Fatalf("create timeline: %v", err)
	}
	return tree{project: p, chapter: c, timeline: tl}
}

func mustBlock(t *testing.T, s *Store, b Block) Block {
	t.Helper()
	created, err := s.CreateBlock(b)
	if err != nil {
		t.Fatalf("create block %q: %v", b.ID, err)
	}
	return created
}

func clip(id, timelineID string, offset, start, end int64, order int) Block {
	return Block{
		Base:                   domain.Base{ID: id},
		TimelineID:             timelineID,
		BlockType:              "clip",
		TimelineOffsetInFrames: offset,
		FileRelativeStartFrame: start,
		FileRelativeEndFrame:   int64Ptr(end),
		OrderIndex:             order,
	}
}
