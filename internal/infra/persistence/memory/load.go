package memory

import (
	"fmt"

	"editfixture/pkg/domain"
)

// Bulk ingest accepts records that an external loader has already parsed and
// validated. Ids and timestamps are kept as supplied (blank ids and zero
// timestamps are filled in); a record whose id is already present replaces
// the stored one. Each Load call validates the whole batch before writing, so
// a rejected batch leaves the store unchanged.

func (s *Store) stamp(b *domain.Base) {
	if b.ID == "" {
		b.ID = s.newID()
	}
	now := s.now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = b.CreatedAt
	}
}

// LoadProjects ingests projects.
func (s *Store) LoadProjects(records []Project) error {
	for _, p := range records {
		if err := p.Settings.RequireStrings(); err != nil {
			s.observe("load_projects", err)
			return fmt.Errorf("load project %q: %w", p.ID, err)
		}
	}
	for _, p := range records {
		s.stamp(&p.Base)
		putOverlay(s.state.settings.projects, p.ID, p.Settings)
		p.Settings = nil
		s.state.projects[p.ID] = cloneProject(p)
		s.record(domain.EntityProject, domain.ActionCreate, p.ID, p.UpdatedAt)
	}
	s.observe("load_projects", nil)
	return nil
}

// LoadChapters ingests chapters.
func (s *Store) LoadChapters(records []Chapter) error {
	for _, c := range records {
		if err := c.Settings.RequireStrings(); err != nil {
			s.observe("load_chapters", err)
			return fmt.Errorf("load chapter %q: %w", c.ID, err)
		}
	}
	for _, c := range records {
		s.stamp(&c.Base)
		putOverlay(s.state.settings.chapters, c.ID, c.Settings)
		c.Settings = nil
		s.state.chapters[c.ID] = cloneChapter(c)
		s.record(domain.EntityChapter, domain.ActionCreate, c.ID, c.UpdatedAt)
	}
	s.observe("load_chapters", nil)
	return nil
}

// LoadTimelines ingests timelines.
func (s *Store) LoadTimelines(records []Timeline) error {
	for _, t := range records {
		s.stamp(&t.Base)
		putOverlay(s.state.settings.timelines, t.ID, t.Settings)
		t.Settings = nil
		s.state.timelines[t.ID] = cloneTimeline(t)
		s.record(domain.EntityTimeline, domain.ActionCreate, t.ID, t.UpdatedAt)
	}
	s.observe("load_timelines", nil)
	return nil
}

// LoadMediaAssets ingests media assets.
func (s *Store) LoadMediaAssets(records []MediaAsset) error {
	for _, a := range records {
		s.stamp(&a.Base)
		s.state.assets[a.ID] = cloneMediaAsset(a)
		s.record(domain.EntityMediaAsset, domain.ActionCreate, a.ID, a.UpdatedAt)
	}
	s.observe("load_media_assets", nil)
	return nil
}

// LoadBlocks ingests blocks. Blocks referencing a media asset already in the
// store receive a copy of that asset's enrichment collections.
func (s *Store) LoadBlocks(records []Block) error {
	for _, b := range records {
		if err := validateFrames(b.FileRelativeStartFrame, b.FileRelativeEndFrame); err != nil {
			s.observe("load_blocks", err)
			return fmt.Errorf("load block %q: %w", b.ID, err)
		}
	}
	for _, b := range records {
		s.stamp(&b.Base)
		if b.MediaAssetID != nil {
			if asset, ok := s.state.assets[*b.MediaAssetID]; ok {
				b = withEnrichment(b, asset)
			}
		}
		s.putBlock(b)
		s.record(domain.EntityBlock, domain.ActionCreate, b.ID, b.UpdatedAt)
	}
	s.observe("load_blocks", nil)
	return nil
}

// LoadBundle ingests a whole fixture in ownership order, then applies the
// bundle's enrichment to the named assets and the blocks referencing them.
func (s *Store) LoadBundle(bundle domain.Bundle) error {
	if err := s.LoadProjects(bundle.Projects); err != nil {
		return err
	}
	if err := s.LoadChapters(bundle.Chapters); err != nil {
		return err
	}
	if err := s.LoadTimelines(bundle.Timelines); err != nil {
		return err
	}
	if err := s.LoadMediaAssets(bundle.MediaAssets); err != nil {
		return err
	}
	if err := s.LoadBlocks(bundle.Blocks); err != nil {
		return err
	}
	for _, assetID := range sortedKeys(bundle.Enrichment) {
		if err := s.ApplyEnrichment(assetID, bundle.Enrichment[assetID]); err != nil {
			return fmt.Errorf("bundle %q: %w", bundle.Name, err)
		}
	}
	s.log.Info().Str("bundle", bundle.Name).
		Int("projects", len(bundle.Projects)).
		Int("blocks", len(bundle.Blocks)).
		Msg("fixture bundle loaded")
	return nil
}

// ApplyEnrichment replaces the asset's enrichment collections and copies them
// onto every block that references the asset.
func (s *Store) ApplyEnrichment(assetID string, e domain.Enrichment) error {
	asset, ok := s.state.assets[assetID]
	if !ok {
		err := notFound(domain.EntityMediaAsset, assetID)
		s.observe("apply_enrichment", err)
		return err
	}
	now := s.now()
	asset.FocusPoints = domain.CloneFocusPoints(e.FocusPoints)
	asset.TranscriptionSegments = domain.CloneTranscription(e.TranscriptionSegments)
	asset.Faces = domain.CloneFaces(e.Faces)
	asset.UpdatedAt = now
	s.state.assets[assetID] = asset
	s.record(domain.EntityMediaAsset, domain.ActionUpdate, assetID, now)
	for _, blockID := range s.assetReferences(assetID) {
		b := withEnrichment(s.state.blocks[blockID], asset)
		b.UpdatedAt = now
		s.state.blocks[blockID] = b
		s.record(domain.EntityBlock, domain.ActionUpdate, blockID, now)
	}
	s.observe("apply_enrichment", nil)
	return nil
}
