package memory

import (
	"fmt"
	"sort"

	"editfixture/pkg/domain"
)

// MoveBlock sets the block's timeline offset and, when newTimelineID is given,
// re-parents it to that timeline (appending it to the new timeline's order).
// Overlaps are not checked; callers use FindOverlapping first.
func (s *Store) MoveBlock(id string, newOffset int64, newTimelineID *string) (Block, error) {
	moved, err := s.moveBlock(id, newOffset, newTimelineID)
	s.observe("move_block", err)
	return moved, err
}

func (s *Store) moveBlock(id string, newOffset int64, newTimelineID *string) (Block, error) {
	b, ok := s.state.blocks[id]
	if !ok {
		return Block{}, notFound(domain.EntityBlock, id)
	}
	if newTimelineID != nil && *newTimelineID != b.TimelineID {
		if _, ok := s.state.timelines[*newTimelineID]; !ok {
			return Block{}, notFound(domain.EntityTimeline, *newTimelineID)
		}
		b.OrderIndex = blockSiblings(&s.state).next(*newTimelineID)
		b.TimelineID = *newTimelineID
	}
	b.TimelineOffsetInFrames = newOffset
	b.UpdatedAt = s.now()
	s.state.blocks[id] = b
	s.record(domain.EntityBlock, domain.ActionUpdate, id, b.UpdatedAt)
	return decorateBlock(&s.state, cloneBlock(b)), nil
}

// SplitBlock cuts a block splitFrame frames after its own start. The original
// keeps [start, start+splitFrame); a new block takes [start+splitFrame, end),
// placed at offset+splitFrame with a copy of the original's settings and
// enrichment and OrderIndex+1. Sibling blocks are not touched. An open-ended
// original hands its nil end to the new block; otherwise splitFrame must fall
// strictly inside the block.
func (s *Store) SplitBlock(id string, splitFrame int64) (Block, Block, error) {
	first, second, err := s.splitBlock(id, splitFrame)
	s.observe("split_block", err)
	return first, second, err
}

func (s *Store) splitBlock(id string, splitFrame int64) (Block, Block, error) {
	original, ok := s.state.blocks[id]
	if !ok {
		return Block{}, Block{}, notFound(domain.EntityBlock, id)
	}
	length := original.Length()
	openEnded := original.FileRelativeEndFrame == nil
	if splitFrame <= 0 || (!openEnded && splitFrame >= length) {
		return Block{}, Block{}, fmt.Errorf("split block %q at %d (length %d): %w", id, splitFrame, length, domain.ErrInvalidRange)
	}
	now := s.now()
	var originalEnd *int64
	if !openEnded {
		end := *original.FileRelativeEndFrame
		originalEnd = &end
	}

	second := cloneBlock(original)
	second.ID = s.newID()
	second.TimelineOffsetInFrames = original.TimelineOffsetInFrames + splitFrame
	second.FileRelativeStartFrame = original.FileRelativeStartFrame + splitFrame
	second.FileRelativeEndFrame = originalEnd
	second.OrderIndex = original.OrderIndex + 1
	second.Settings = s.state.settings.blocks[id].Clone()
	second.CreatedAt = now
	second.UpdatedAt = now

	firstEnd := original.FileRelativeStartFrame + splitFrame
	original.FileRelativeEndFrame = &firstEnd
	original.UpdatedAt = now
	s.state.blocks[id] = original
	s.record(domain.EntityBlock, domain.ActionUpdate, id, now)

	s.putBlock(second)
	s.record(domain.EntityBlock, domain.ActionCreate, second.ID, now)

	return decorateBlock(&s.state, cloneBlock(original)), decorateBlock(&s.state, cloneBlock(s.state.blocks[second.ID])), nil
}

// TrimBlock rewrites the file-relative start and, when newEnd is given, the
// end. The timeline offset is unchanged. A resulting end before the start is
// rejected.
func (s *Store) TrimBlock(id string, newStart int64, newEnd *int64) (Block, error) {
	trimmed, err := s.trimBlock(id, newStart, newEnd)
	s.observe("trim_block", err)
	return trimmed, err
}

func (s *Store) trimBlock(id string, newStart int64, newEnd *int64) (Block, error) {
	b, ok := s.state.blocks[id]
	if !ok {
		return Block{}, notFound(domain.EntityBlock, id)
	}
	end := b.FileRelativeEndFrame
	if newEnd != nil {
		v := *newEnd
		end = &v
	}
	if err := validateFrames(newStart, end); err != nil {
		return Block{}, fmt.Errorf("trim block %q: %w", id, err)
	}
	b.FileRelativeStartFrame = newStart
	b.FileRelativeEndFrame = end
	b.UpdatedAt = s.now()
	s.state.blocks[id] = b
	s.record(domain.EntityBlock, domain.ActionUpdate, id, b.UpdatedAt)
	return decorateBlock(&s.state, cloneBlock(b)), nil
}

// FindOverlapping returns the blocks on the timeline whose half-open
// on-timeline interval intersects [start, end), ordered by offset then id.
func (s *Store) FindOverlapping(timelineID string, start, end int64) []Block {
	var out []Block
	for _, b := range s.state.blocks {
		if b.TimelineID == timelineID && b.Overlaps(start, end) {
			out = append(out, decorateBlock(&s.state, cloneBlock(b)))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TimelineOffsetInFrames != out[j].TimelineOffsetInFrames {
			return out[i].TimelineOffsetInFrames < out[j].TimelineOffsetInFrames
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// TimelineDuration returns the largest block end on the timeline, which may be
// negative after blocks were shifted left, or 0 when it has no blocks.
func (s *Store) TimelineDuration(timelineID string) int64 {
	var (
		duration int64
		found    bool
	)
	for _, b := range s.state.blocks {
		if b.TimelineID != timelineID {
			continue
		}
		if end := b.TimelineEnd(); !found || end > duration {
			duration = end
			found = true
		}
	}
	return duration
}
