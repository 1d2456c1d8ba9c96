package memory

import (
	"fmt"
	"time"

	"editfixture/pkg/domain"
)

// siblings exposes one entity collection's parent key and ordering field.
type siblings[T any] struct {
	items  map[string]T
	parent func(T) string
	index  func(T) int
	set    func(*T, int, time.Time)
}

func (sb siblings[T]) reorder(parentID string, orderedIDs []string, at time.Time) []string {
	var touched []string
	seen := make(map[string]struct{}, len(orderedIDs))
	for pos, id := range orderedIDs {
		item, ok := sb.items[id]
		if !ok || sb.parent(item) != parentID {
			continue
		}
		sb.set(&item, pos, at)
		sb.items[id] = item
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			touched = append(touched, id)
		}
	}
	return touched
}

func (sb siblings[T]) shift(parentID string, threshold, delta int, at time.Time) []string {
	var touched []string
	for _, id := range sortedKeys(sb.items) {
		item := sb.items[id]
		if sb.parent(item) != parentID || sb.index(item) < threshold {
			continue
		}
		sb.set(&item, sb.index(item)+delta, at)
		sb.items[id] = item
		touched = append(touched, id)
	}
	return touched
}

func (sb siblings[T]) next(parentID string) int {
	next, found := 0, false
	for _, item := range sb.items {
		if sb.parent(item) != parentID {
			continue
		}
		if idx := sb.index(item) + 1; !found || idx > next {
			next, found = idx, true
		}
	}
	return next
}

func chapterSiblings(state *memoryState) siblings[Chapter] {
	return siblings[Chapter]{
		items:  state.chapters,
		parent: func(c Chapter) string { return c.ProjectID },
		index:  func(c Chapter) int { return c.OrderIndex },
		set:    func(c *Chapter, i int, at time.Time) { c.OrderIndex = i; c.UpdatedAt = at },
	}
}

func timelineSiblings(state *memoryState) siblings[Timeline] {
	return siblings[Timeline]{
		items:  state.timelines,
		parent: func(t Timeline) string { return t.ChapterID },
		index:  func(t Timeline) int { return t.OrderIndex },
		set:    func(t *Timeline, i int, at time.Time) { t.OrderIndex = i; t.UpdatedAt = at },
	}
}

func blockSiblings(state *memoryState) siblings[Block] {
	return siblings[Block]{
		items:  state.blocks,
		parent: func(b Block) string { return b.TimelineID },
		index:  func(b Block) int { return b.OrderIndex },
		set:    func(b *Block, i int, at time.Time) { b.OrderIndex = i; b.UpdatedAt = at },
	}
}

func assetSiblings(state *memoryState) siblings[MediaAsset] {
	return siblings[MediaAsset]{
		items:  state.assets,
		parent: func(a MediaAsset) string { return a.ProjectID },
		index:  func(a MediaAsset) int { return a.OrderIndex },
		set:    func(a *MediaAsset, i int, at time.Time) { a.OrderIndex = i; a.UpdatedAt = at },
	}
}

// Reorder assigns OrderIndex = position in orderedIDs for every listed id owned
// by parentID. Ids owned by another parent, or unknown, are skipped; siblings
// left out of the list keep their index. It returns the number of records
// updated.
func (s *Store) Reorder(kind domain.EntityType, parentID string, orderedIDs []string) (int, error) {
	now := s.now()
	var touched []string
	switch kind {
	case domain.EntityChapter:
		touched = chapterSiblings(&s.state).reorder(parentID, orderedIDs, now)
	case domain.EntityTimeline:
		touched = timelineSiblings(&s.state).reorder(parentID, orderedIDs, now)
	case domain.EntityBlock:
		touched = blockSiblings(&s.state).reorder(parentID, orderedIDs, now)
	case domain.EntityMediaAsset:
		touched = assetSiblings(&s.state).reorder(parentID, orderedIDs, now)
	default:
		err := fmt.Errorf("reorder %s: %w", kind, domain.ErrUnsupportedKind)
		s.observe("reorder", err)
		return 0, err
	}
	for _, id := range touched {
		s.record(kind, domain.ActionUpdate, id, now)
	}
	s.observe("reorder", nil)
	return len(touched), nil
}

// ShiftAfter adds delta to the OrderIndex of every sibling under parentID whose
// index is at or beyond threshold, and returns the count touched. For blocks
// the shifted field is TimelineOffsetInFrames instead; see ShiftBlocks.
// Gaps are allowed.
func (s *Store) ShiftAfter(kind domain.EntityType, parentID string, threshold, delta int) (int, error) {
	now := s.now()
	var touched []string
	switch kind {
	case domain.EntityChapter:
		touched = chapterSiblings(&s.state).shift(parentID, threshold, delta, now)
	case domain.EntityTimeline:
		touched = timelineSiblings(&s.state).shift(parentID, threshold, delta, now)
	case domain.EntityBlock:
		n := s.shiftBlocks(parentID, int64(threshold), int64(delta))
		s.observe("shift_after", nil)
		return n, nil
	case domain.EntityMediaAsset:
		touched = assetSiblings(&s.state).shift(parentID, threshold, delta, now)
	default:
		err := fmt.Errorf("shift %s: %w", kind, domain.ErrUnsupportedKind)
		s.observe("shift_after", err)
		return 0, err
	}
	for _, id := range touched {
		s.record(kind, domain.ActionUpdate, id, now)
	}
	s.observe("shift_after", nil)
	return len(touched), nil
}

// ShiftBlocks adds delta to TimelineOffsetInFrames of every block on the
// timeline whose offset is at or beyond fromFrame, and returns the count.
func (s *Store) ShiftBlocks(timelineID string, fromFrame, delta int64) int {
	n := s.shiftBlocks(timelineID, fromFrame, delta)
	s.observe("shift_blocks", nil)
	return n
}

func (s *Store) shiftBlocks(timelineID string, fromFrame, delta int64) int {
	now := s.now()
	count := 0
	for _, id := range sortedKeys(s.state.blocks) {
		b := s.state.blocks[id]
		if b.TimelineID != timelineID || b.TimelineOffsetInFrames < fromFrame {
			continue
		}
		b.TimelineOffsetInFrames += delta
		b.UpdatedAt = now
		s.state.blocks[id] = b
		s.record(domain.EntityBlock, domain.ActionUpdate, id, now)
		count++
	}
	return count
}

// NextOrderIndex returns one past the largest sibling OrderIndex under
// parentID, or 0 when there are no siblings.
func (s *Store) NextOrderIndex(kind domain.EntityType, parentID string) (int, error) {
	switch kind {
	case domain.EntityChapter:
		return chapterSiblings(&s.state).next(parentID), nil
	case domain.EntityTimeline:
		return timelineSiblings(&s.state).next(parentID), nil
	case domain.EntityBlock:
		return blockSiblings(&s.state).next(parentID), nil
	case domain.EntityMediaAsset:
		return assetSiblings(&s.state).next(parentID), nil
	default:
		return 0, fmt.Errorf("next order index %s: %w", kind, domain.ErrUnsupportedKind)
	}
}
