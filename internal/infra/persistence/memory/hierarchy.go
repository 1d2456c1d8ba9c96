package memory

import (
	"sort"

	"editfixture/pkg/domain"
)

// Children are derived by scanning the owning foreign key; no separate index
// is maintained, so the hierarchy can never drift from the records.

type orderedID struct {
	id    string
	order int
}

func sortByOrder(items []orderedID) []string {
	sort.Slice(items, func(i, j int) bool {
		if items[i].order != items[j].order {
			return items[i].order < items[j].order
		}
		return items[i].id < items[j].id
	})
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.id
	}
	return ids
}

func (s *Store) chapterIDs(projectID string) []string {
	var items []orderedID
	for _, c := range s.state.chapters {
		if c.ProjectID == projectID {
			items = append(items, orderedID{id: c.ID, order: c.OrderIndex})
		}
	}
	return sortByOrder(items)
}

func (s *Store) timelineIDs(chapterID string) []string {
	var items []orderedID
	for _, t := range s.state.timelines {
		if t.ChapterID == chapterID {
			items = append(items, orderedID{id: t.ID, order: t.OrderIndex})
		}
	}
	return sortByOrder(items)
}

func (s *Store) blockIDs(timelineID string) []string {
	var items []orderedID
	for _, b := range s.state.blocks {
		if b.TimelineID == timelineID {
			items = append(items, orderedID{id: b.ID, order: b.OrderIndex})
		}
	}
	return sortByOrder(items)
}

func (s *Store) assetIDs(projectID string) []string {
	var items []orderedID
	for _, a := range s.state.assets {
		if a.ProjectID == projectID {
			items = append(items, orderedID{id: a.ID, order: a.OrderIndex})
		}
	}
	return sortByOrder(items)
}

// ChaptersOf returns the project's chapters ordered by OrderIndex, ties by id.
func (s *Store) ChaptersOf(projectID string) []Chapter {
	ids := s.chapterIDs(projectID)
	out := make([]Chapter, 0, len(ids))
	for _, id := range ids {
		out = append(out, decorateChapter(&s.state, cloneChapter(s.state.chapters[id])))
	}
	return out
}

// TimelinesOf returns the chapter's timelines ordered by OrderIndex, ties by id.
func (s *Store) TimelinesOf(chapterID string) []Timeline {
	ids := s.timelineIDs(chapterID)
	out := make([]Timeline, 0, len(ids))
	for _, id := range ids {
		out = append(out, decorateTimeline(&s.state, cloneTimeline(s.state.timelines[id])))
	}
	return out
}

// BlocksOf returns the timeline's blocks ordered by OrderIndex, ties by id.
func (s *Store) BlocksOf(timelineID string) []Block {
	ids := s.blockIDs(timelineID)
	out := make([]Block, 0, len(ids))
	for _, id := range ids {
		out = append(out, decorateBlock(&s.state, cloneBlock(s.state.blocks[id])))
	}
	return out
}

// MediaAssetsOf returns the project's media assets ordered by OrderIndex, ties by id.
func (s *Store) MediaAssetsOf(projectID string) []MediaAsset {
	ids := s.assetIDs(projectID)
	out := make([]MediaAsset, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneMediaAsset(s.state.assets[id]))
	}
	return out
}

// BlocksReferencing returns the blocks that reference a media asset, ordered by id.
func (s *Store) BlocksReferencing(assetID string) []Block {
	ids := s.assetReferences(assetID)
	out := make([]Block, 0, len(ids))
	for _, id := range ids {
		out = append(out, decorateBlock(&s.state, cloneBlock(s.state.blocks[id])))
	}
	return out
}

// ParentOf returns the owning record id for a child record.
func (s *Store) ParentOf(kind domain.EntityType, id string) (string, bool) {
	switch kind {
	case domain.EntityChapter:
		c, ok := s.state.chapters[id]
		return c.ProjectID, ok
	case domain.EntityTimeline:
		t, ok := s.state.timelines[id]
		return t.ChapterID, ok
	case domain.EntityBlock:
		b, ok := s.state.blocks[id]
		return b.TimelineID, ok
	case domain.EntityMediaAsset:
		a, ok := s.state.assets[id]
		return a.ProjectID, ok
	default:
		return "", false
	}
}
