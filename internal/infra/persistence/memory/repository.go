package memory

import (
	"fmt"
	"sort"
	"time"

	"editfixture/pkg/domain"
)

func notFound(entity domain.EntityType, id string) error {
	return domain.NotFoundError{Entity: entity, ID: id}
}

func alreadyExists(entity domain.EntityType, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, domain.ErrAlreadyExists)
}

func validateFrames(start int64, end *int64) error {
	if end != nil && *end < start {
		return fmt.Errorf("%w: end %d before start %d", domain.ErrInvalidRange, *end, start)
	}
	return nil
}

// GetProject returns the project and its settings projection.
func (s *Store) GetProject(id string) (Project, bool) {
	p, ok := s.state.projects[id]
	if !ok {
		return Project{}, false
	}
	return decorateProject(&s.state, cloneProject(p)), true
}

// ListProjects returns all projects ordered by id.
func (s *Store) ListProjects() []Project {
	out := make([]Project, 0, len(s.state.projects))
	for _, id := range sortedKeys(s.state.projects) {
		out = append(out, decorateProject(&s.state, cloneProject(s.state.projects[id])))
	}
	return out
}

// CreateProject stores a new project. Settings must be string-valued.
func (s *Store) CreateProject(p Project) (Project, error) {
	created, err := s.createProject(p)
	s.observe("create_project", err)
	return created, err
}

func (s *Store) createProject(p Project) (Project, error) {
	if p.ID == "" {
		p.ID = s.newID()
	}
	if _, exists := s.state.projects[p.ID]; exists {
		return Project{}, alreadyExists(domain.EntityProject, p.ID)
	}
	if err := p.Settings.RequireStrings(); err != nil {
		return Project{}, fmt.Errorf("project %q: %w", p.ID, err)
	}
	now := s.now()
	p.CreatedAt = now
	p.UpdatedAt = now
	putOverlay(s.state.settings.projects, p.ID, p.Settings)
	p.Settings = nil
	s.state.projects[p.ID] = cloneProject(p)
	s.record(domain.EntityProject, domain.ActionCreate, p.ID, now)
	return decorateProject(&s.state, cloneProject(p)), nil
}

// UpdateProject mutates a project. Settings changes made by the mutator are
// written through to the project overlay.
func (s *Store) UpdateProject(id string, mutator func(*Project) error) (Project, error) {
	updated, err := s.updateProject(id, mutator)
	s.observe("update_project", err)
	return updated, err
}

func (s *Store) updateProject(id string, mutator func(*Project) error) (Project, error) {
	current, ok := s.state.projects[id]
	if !ok {
		return Project{}, notFound(domain.EntityProject, id)
	}
	current = decorateProject(&s.state, cloneProject(current))
	createdAt := current.CreatedAt
	if err := mutator(&current); err != nil {
		return Project{}, err
	}
	if err := current.Settings.RequireStrings(); err != nil {
		return Project{}, fmt.Errorf("project %q: %w", id, err)
	}
	current.ID = id
	current.CreatedAt = createdAt
	current.UpdatedAt = s.now()
	putOverlay(s.state.settings.projects, id, current.Settings)
	current.Settings = nil
	s.state.projects[id] = cloneProject(current)
	s.record(domain.EntityProject, domain.ActionUpdate, id, current.UpdatedAt)
	return decorateProject(&s.state, cloneProject(current)), nil
}

// DeleteProject removes a project and everything it owns: chapters, their
// timelines and blocks, media assets, and all related overlays. The delete is
// refused, leaving the store unchanged, when a block outside the project still
// references one of its media assets. Deleting a missing project is a no-op.
func (s *Store) DeleteProject(id string) (bool, error) {
	deleted, err := s.deleteProject(id)
	s.observe("delete_project", err)
	return deleted, err
}

func (s *Store) deleteProject(id string) (bool, error) {
	if _, ok := s.state.projects[id]; !ok {
		return false, nil
	}
	owned := make(map[string]struct{})
	for _, chapterID := range s.chapterIDs(id) {
		for _, timelineID := range s.timelineIDs(chapterID) {
			for _, blockID := range s.blockIDs(timelineID) {
				owned[blockID] = struct{}{}
			}
		}
	}
	assetIDs := s.assetIDs(id)
	for _, assetID := range assetIDs {
		var refs []string
		for _, blockID := range s.assetReferences(assetID) {
			if _, ok := owned[blockID]; !ok {
				refs = append(refs, blockID)
			}
		}
		if len(refs) > 0 {
			return false, domain.ReferencedError{Entity: domain.EntityMediaAsset, ID: assetID, ReferencedBy: domain.EntityBlock, RefIDs: refs}
		}
	}
	now := s.now()
	for _, chapterID := range s.chapterIDs(id) {
		s.deleteChapterRecord(chapterID, now)
	}
	for _, assetID := range assetIDs {
		delete(s.state.assets, assetID)
		s.record(domain.EntityMediaAsset, domain.ActionDelete, assetID, now)
	}
	delete(s.state.projects, id)
	delete(s.state.settings.projects, id)
	s.record(domain.EntityProject, domain.ActionDelete, id, now)
	return true, nil
}

// GetChapter returns the chapter and its settings projection.
func (s *Store) GetChapter(id string) (Chapter, bool) {
	c, ok := s.state.chapters[id]
	if !ok {
		return Chapter{}, false
	}
	return decorateChapter(&s.state, cloneChapter(c)), true
}

// ListChapters returns all chapters ordered by id.
func (s *Store) ListChapters() []Chapter {
	out := make([]Chapter, 0, len(s.state.chapters))
	for _, id := range sortedKeys(s.state.chapters) {
		out = append(out, decorateChapter(&s.state, cloneChapter(s.state.chapters[id])))
	}
	return out
}

// CreateChapter stores a chapter under an existing project.
func (s *Store) CreateChapter(c Chapter) (Chapter, error) {
	created, err := s.createChapter(c)
	s.observe("create_chapter", err)
	return created, err
}

func (s *Store) createChapter(c Chapter) (Chapter, error) {
	if c.ID == "" {
		c.ID = s.newID()
	}
	if _, exists := s.state.chapters[c.ID]; exists {
		return Chapter{}, alreadyExists(domain.EntityChapter, c.ID)
	}
	if _, ok := s.state.projects[c.ProjectID]; !ok {
		return Chapter{}, notFound(domain.EntityProject, c.ProjectID)
	}
	if err := c.Settings.RequireStrings(); err != nil {
		return Chapter{}, fmt.Errorf("chapter %q: %w", c.ID, err)
	}
	now := s.now()
	c.CreatedAt = now
	c.UpdatedAt = now
	putOverlay(s.state.settings.chapters, c.ID, c.Settings)
	c.Settings = nil
	s.state.chapters[c.ID] = cloneChapter(c)
	s.record(domain.EntityChapter, domain.ActionCreate, c.ID, now)
	return decorateChapter(&s.state, cloneChapter(c)), nil
}

// UpdateChapter mutates a chapter, validating a changed owning project.
func (s *Store) UpdateChapter(id string, mutator func(*Chapter) error) (Chapter, error) {
	updated, err := s.updateChapter(id, mutator)
	s.observe("update_chapter", err)
	return updated, err
}

func (s *Store) updateChapter(id string, mutator func(*Chapter) error) (Chapter, error) {
	current, ok := s.state.chapters[id]
	if !ok {
		return Chapter{}, notFound(domain.EntityChapter, id)
	}
	current = decorateChapter(&s.state, cloneChapter(current))
	createdAt := current.CreatedAt
	if err := mutator(&current); err != nil {
		return Chapter{}, err
	}
	if _, ok := s.state.projects[current.ProjectID]; !ok {
		return Chapter{}, notFound(domain.EntityProject, current.ProjectID)
	}
	if err := current.Settings.RequireStrings(); err != nil {
		return Chapter{}, fmt.Errorf("chapter %q: %w", id, err)
	}
	current.ID = id
	current.CreatedAt = createdAt
	current.UpdatedAt = s.now()
	putOverlay(s.state.settings.chapters, id, current.Settings)
	current.Settings = nil
	s.state.chapters[id] = cloneChapter(current)
	s.record(domain.EntityChapter, domain.ActionUpdate, id, current.UpdatedAt)
	return decorateChapter(&s.state, cloneChapter(current)), nil
}

// DeleteChapter removes a chapter, its settings overlay, and its timelines
// with their blocks. Deleting a missing chapter is a no-op.
func (s *Store) DeleteChapter(id string) bool {
	if _, ok := s.state.chapters[id]; !ok {
		s.observe("delete_chapter", nil)
		return false
	}
	s.deleteChapterRecord(id, s.now())
	s.observe("delete_chapter", nil)
	return true
}

func (s *Store) deleteChapterRecord(id string, at time.Time) {
	for _, timelineID := range s.timelineIDs(id) {
		s.deleteTimelineRecord(timelineID, at)
	}
	delete(s.state.chapters, id)
	delete(s.state.settings.chapters, id)
	s.record(domain.EntityChapter, domain.ActionDelete, id, at)
}

// GetTimeline returns the timeline and its settings projection.
func (s *Store) GetTimeline(id string) (Timeline, bool) {
	t, ok := s.state.timelines[id]
	if !ok {
		return Timeline{}, false
	}
	return decorateTimeline(&s.state, cloneTimeline(t)), true
}

// ListTimelines returns all timelines ordered by id.
func (s *Store) ListTimelines() []Timeline {
	out := make([]Timeline, 0, len(s.state.timelines))
	for _, id := range sortedKeys(s.state.timelines) {
		out = append(out, decorateTimeline(&s.state, cloneTimeline(s.state.timelines[id])))
	}
	return out
}

// CreateTimeline stores a timeline under an existing chapter.
func (s *Store) CreateTimeline(t Timeline) (Timeline, error) {
	created, err := s.createTimeline(t)
	s.observe("create_timeline", err)
	return created, err
}

func (s *Store) createTimeline(t Timeline) (Timeline, error) {
	if t.ID == "" {
		t.ID = s.newID()
	}
	if _, exists := s.state.timelines[t.ID]; exists {
		return Timeline{}, alreadyExists(domain.EntityTimeline, t.ID)
	}
	if _, ok := s.state.chapters[t.ChapterID]; !ok {
		return Timeline{}, notFound(domain.EntityChapter, t.ChapterID)
	}
	now := s.now()
	t.CreatedAt = now
	t.UpdatedAt = now
	putOverlay(s.state.settings.timelines, t.ID, t.Settings)
	t.Settings = nil
	s.state.timelines[t.ID] = cloneTimeline(t)
	s.record(domain.EntityTimeline, domain.ActionCreate, t.ID, now)
	return decorateTimeline(&s.state, cloneTimeline(t)), nil
}

// UpdateTimeline mutates a timeline, validating a changed owning chapter.
func (s *Store) UpdateTimeline(id string, mutator func(*Timeline) error) (Timeline, error) {
	updated, err := s.updateTimeline(id, mutator)
	s.observe("update_timeline", err)
	return updated, err
}

func (s *Store) updateTimeline(id string, mutator func(*Timeline) error) (Timeline, error) {
	current, ok := s.state.timelines[id]
	if !ok {
		return Timeline{}, notFound(domain.EntityTimeline, id)
	}
	current = decorateTimeline(&s.state, cloneTimeline(current))
	createdAt := current.CreatedAt
	if err := mutator(&current); err != nil {
		return Timeline{}, err
	}
	if _, ok := s.state.chapters[current.ChapterID]; !ok {
		return Timeline{}, notFound(domain.EntityChapter, current.ChapterID)
	}
	current.ID = id
	current.CreatedAt = createdAt
	current.UpdatedAt = s.now()
	putOverlay(s.state.settings.timelines, id, current.Settings)
	current.Settings = nil
	s.state.timelines[id] = cloneTimeline(current)
	s.record(domain.EntityTimeline, domain.ActionUpdate, id, current.UpdatedAt)
	return decorateTimeline(&s.state, cloneTimeline(current)), nil
}

// DeleteTimeline removes a timeline, its settings overlay, and its blocks.
// Deleting a missing timeline is a no-op.
func (s *Store) DeleteTimeline(id string) bool {
	if _, ok := s.state.timelines[id]; !ok {
		s.observe("delete_timeline", nil)
		return false
	}
	s.deleteTimelineRecord(id, s.now())
	s.observe("delete_timeline", nil)
	return true
}

func (s *Store) deleteTimelineRecord(id string, at time.Time) {
	for _, blockID := range s.blockIDs(id) {
		s.deleteBlockRecord(blockID, at)
	}
	delete(s.state.timelines, id)
	delete(s.state.settings.timelines, id)
	s.record(domain.EntityTimeline, domain.ActionDelete, id, at)
}

// GetBlock returns the block and its settings projection.
func (s *Store) GetBlock(id string) (Block, bool) {
	b, ok := s.state.blocks[id]
	if !ok {
		return Block{}, false
	}
	return decorateBlock(&s.state, cloneBlock(b)), true
}

// ListBlocks returns all blocks ordered by id.
func (s *Store) ListBlocks() []Block {
	out := make([]Block, 0, len(s.state.blocks))
	for _, id := range sortedKeys(s.state.blocks) {
		out = append(out, decorateBlock(&s.state, cloneBlock(s.state.blocks[id])))
	}
	return out
}

// CreateBlock stores a block on an existing timeline. When the block references
// a media asset, the asset's enrichment collections are copied onto it.
func (s *Store) CreateBlock(b Block) (Block, error) {
	created, err := s.createBlock(b)
	s.observe("create_block", err)
	return created, err
}

func (s *Store) createBlock(b Block) (Block, error) {
	if b.ID == "" {
		b.ID = s.newID()
	}
	if _, exists := s.state.blocks[b.ID]; exists {
		return Block{}, alreadyExists(domain.EntityBlock, b.ID)
	}
	if err := s.validateBlock(b); err != nil {
		return Block{}, err
	}
	if b.MediaAssetID != nil {
		b = withEnrichment(b, s.state.assets[*b.MediaAssetID])
	}
	now := s.now()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.putBlock(b)
	s.record(domain.EntityBlock, domain.ActionCreate, b.ID, now)
	return decorateBlock(&s.state, cloneBlock(b)), nil
}

func (s *Store) validateBlock(b Block) error {
	if _, ok := s.state.timelines[b.TimelineID]; !ok {
		return notFound(domain.EntityTimeline, b.TimelineID)
	}
	if b.MediaAssetID != nil {
		if _, ok := s.state.assets[*b.MediaAssetID]; !ok {
			return notFound(domain.EntityMediaAsset, *b.MediaAssetID)
		}
	}
	return validateFrames(b.FileRelativeStartFrame, b.FileRelativeEndFrame)
}

// putBlock writes b's settings to the overlay and stores the stripped record.
func (s *Store) putBlock(b Block) {
	putOverlay(s.state.settings.blocks, b.ID, b.Settings)
	b.Settings = nil
	s.state.blocks[b.ID] = cloneBlock(b)
}

// UpdateBlock mutates a block. A changed media asset reference refreshes the
// derived enrichment fields.
func (s *Store) UpdateBlock(id string, mutator func(*Block) error) (Block, error) {
	updated, err := s.updateBlock(id, mutator)
	s.observe("update_block", err)
	return updated, err
}

func (s *Store) updateBlock(id string, mutator func(*Block) error) (Block, error) {
	stored, ok := s.state.blocks[id]
	if !ok {
		return Block{}, notFound(domain.EntityBlock, id)
	}
	current := decorateBlock(&s.state, cloneBlock(stored))
	createdAt := current.CreatedAt
	if err := mutator(&current); err != nil {
		return Block{}, err
	}
	current.ID = id
	if err := s.validateBlock(current); err != nil {
		return Block{}, err
	}
	if !sameRef(stored.MediaAssetID, current.MediaAssetID) {
		if current.MediaAssetID == nil {
			current = withEnrichment(current, MediaAsset{})
		} else {
			current = withEnrichment(current, s.state.assets[*current.MediaAssetID])
		}
	}
	current.CreatedAt = createdAt
	current.UpdatedAt = s.now()
	s.putBlock(current)
	s.record(domain.EntityBlock, domain.ActionUpdate, id, current.UpdatedAt)
	return decorateBlock(&s.state, cloneBlock(current)), nil
}

// DeleteBlock removes a block and its settings overlay. Deleting a missing
// block is a no-op.
func (s *Store) DeleteBlock(id string) bool {
	if _, ok := s.state.blocks[id]; !ok {
		s.observe("delete_block", nil)
		return false
	}
	s.deleteBlockRecord(id, s.now())
	s.observe("delete_block", nil)
	return true
}

func (s *Store) deleteBlockRecord(id string, at time.Time) {
	delete(s.state.blocks, id)
	delete(s.state.settings.blocks, id)
	s.record(domain.EntityBlock, domain.ActionDelete, id, at)
}

// GetMediaAsset returns a media asset.
func (s *Store) GetMediaAsset(id string) (MediaAsset, bool) {
	a, ok := s.state.assets[id]
	if !ok {
		return MediaAsset{}, false
	}
	return cloneMediaAsset(a), true
}

// ListMediaAssets returns all media assets ordered by id.
func (s *Store) ListMediaAssets() []MediaAsset {
	out := make([]MediaAsset, 0, len(s.state.assets))
	for _, id := range sortedKeys(s.state.assets) {
		out = append(out, cloneMediaAsset(s.state.assets[id]))
	}
	return out
}

// CreateMediaAsset stores a media asset under an existing project.
func (s *Store) CreateMediaAsset(a MediaAsset) (MediaAsset, error) {
	created, err := s.createMediaAsset(a)
	s.observe("create_media_asset", err)
	return created, err
}

func (s *Store) createMediaAsset(a MediaAsset) (MediaAsset, error) {
	if a.ID == "" {
		a.ID = s.newID()
	}
	if _, exists := s.state.assets[a.ID]; exists {
		return MediaAsset{}, alreadyExists(domain.EntityMediaAsset, a.ID)
	}
	if _, ok := s.state.projects[a.ProjectID]; !ok {
		return MediaAsset{}, notFound(domain.EntityProject, a.ProjectID)
	}
	now := s.now()
	a.CreatedAt = now
	a.UpdatedAt = now
	s.state.assets[a.ID] = cloneMediaAsset(a)
	s.record(domain.EntityMediaAsset, domain.ActionCreate, a.ID, now)
	return cloneMediaAsset(a), nil
}

// UpdateMediaAsset mutates a media asset. Blocks keep the enrichment they
// copied earlier; use ApplyEnrichment to push new enrichment to them.
func (s *Store) UpdateMediaAsset(id string, mutator func(*MediaAsset) error) (MediaAsset, error) {
	updated, err := s.updateMediaAsset(id, mutator)
	s.observe("update_media_asset", err)
	return updated, err
}

func (s *Store) updateMediaAsset(id string, mutator func(*MediaAsset) error) (MediaAsset, error) {
	current, ok := s.state.assets[id]
	if !ok {
		return MediaAsset{}, notFound(domain.EntityMediaAsset, id)
	}
	current = cloneMediaAsset(current)
	createdAt := current.CreatedAt
	if err := mutator(&current); err != nil {
		return MediaAsset{}, err
	}
	if _, ok := s.state.projects[current.ProjectID]; !ok {
		return MediaAsset{}, notFound(domain.EntityProject, current.ProjectID)
	}
	current.ID = id
	current.CreatedAt = createdAt
	current.UpdatedAt = s.now()
	s.state.assets[id] = cloneMediaAsset(current)
	s.record(domain.EntityMediaAsset, domain.ActionUpdate, id, current.UpdatedAt)
	return cloneMediaAsset(current), nil
}

// DeleteMediaAsset removes a media asset. It is refused with a
// domain.ReferencedError while any block references the asset. Deleting a
// missing asset is a no-op.
func (s *Store) DeleteMediaAsset(id string) (bool, error) {
	deleted, err := s.deleteMediaAsset(id)
	s.observe("delete_media_asset", err)
	return deleted, err
}

func (s *Store) deleteMediaAsset(id string) (bool, error) {
	if _, ok := s.state.assets[id]; !ok {
		return false, nil
	}
	if refs := s.assetReferences(id); len(refs) > 0 {
		return false, domain.ReferencedError{Entity: domain.EntityMediaAsset, ID: id, ReferencedBy: domain.EntityBlock, RefIDs: refs}
	}
	delete(s.state.assets, id)
	s.record(domain.EntityMediaAsset, domain.ActionDelete, id, s.now())
	return true, nil
}

// assetReferences returns the sorted ids of blocks referencing the asset.
func (s *Store) assetReferences(assetID string) []string {
	var ids []string
	for _, b := range s.state.blocks {
		if b.MediaAssetID != nil && *b.MediaAssetID == assetID {
			ids = append(ids, b.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func withEnrichment(b Block, a MediaAsset) Block {
	b.FocusPoints = domain.CloneFocusPoints(a.FocusPoints)
	b.TranscriptionSegments = domain.CloneTranscription(a.TranscriptionSegments)
	b.Faces = domain.CloneFaces(a.Faces)
	return b
}
