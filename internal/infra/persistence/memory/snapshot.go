package memory

import (
	"time"

	"editfixture/pkg/domain/settings"
)

// Snapshot captures a point-in-time deep copy of the store. Entity records
// carry their settings projection; the overlay maps are included as well so
// a snapshot can be restored without loss.
type Snapshot struct {
	TakenAt          time.Time               `json:"taken_at"`
	Projects         map[string]Project      `json:"projects"`
	Chapters         map[string]Chapter      `json:"chapters"`
	Timelines        map[string]Timeline     `json:"timelines"`
	Blocks           map[string]Block        `json:"blocks"`
	MediaAssets      map[string]MediaAsset   `json:"media_assets"`
	ProjectSettings  map[string]settings.Map `json:"project_settings"`
	ChapterSettings  map[string]settings.Map `json:"chapter_settings"`
	TimelineSettings map[string]settings.Map `json:"timeline_settings"`
	BlockSettings    map[string]settings.Map `json:"block_settings"`
}

// Snapshot returns an independent copy of every collection. Later mutations of
// the store are not visible through it and mutating it does not touch the store.
func (s *Store) Snapshot() Snapshot {
	state := s.state.clone()
	snap := Snapshot{
		TakenAt:          s.now(),
		Projects:         make(map[string]Project, len(state.projects)),
		Chapters:         make(map[string]Chapter, len(state.chapters)),
		Timelines:        make(map[string]Timeline, len(state.timelines)),
		Blocks:           make(map[string]Block, len(state.blocks)),
		MediaAssets:      state.assets,
		ProjectSettings:  state.settings.projects,
		ChapterSettings:  state.settings.chapters,
		TimelineSettings: state.settings.timelines,
		BlockSettings:    state.settings.blocks,
	}
	for k, v := range state.projects {
		snap.Projects[k] = decorateProject(&state, v)
	}
	for k, v := range state.chapters {
		snap.Chapters[k] = decorateChapter(&state, v)
	}
	for k, v := range state.timelines {
		snap.Timelines[k] = decorateTimeline(&state, v)
	}
	for k, v := range state.blocks {
		snap.Blocks[k] = decorateBlock(&state, v)
	}
	if s.metrics != nil {
		if rec, ok := s.metrics.(SnapshotRecorder); ok {
			rec.RecordSnapshot(snap.Counts())
		}
	}
	s.observe("snapshot", nil)
	return snap
}

// SnapshotRecorder is implemented by metrics recorders that track collection sizes.
type SnapshotRecorder interface {
	RecordSnapshot(counts map[string]int)
}

// Counts returns the number of records per collection.
func (snap Snapshot) Counts() map[string]int {
	return map[string]int{
		"projects":     len(snap.Projects),
		"chapters":     len(snap.Chapters),
		"timelines":    len(snap.Timelines),
		"blocks":       len(snap.Blocks),
		"media_assets": len(snap.MediaAssets),
	}
}

// Restore replaces the store state with a deep copy of snap. Overlay maps take
// precedence; an entity's embedded settings are used only when the snapshot
// has no overlay entry for it. The journal is left untouched.
func (s *Store) Restore(snap Snapshot) {
	state := newMemoryState()
	for k, v := range snap.ProjectSettings {
		putOverlay(state.settings.projects, k, v)
	}
	for k, v := range snap.ChapterSettings {
		putOverlay(state.settings.chapters, k, v)
	}
	for k, v := range snap.TimelineSettings {
		putOverlay(state.settings.timelines, k, v)
	}
	for k, v := range snap.BlockSettings {
		putOverlay(state.settings.blocks, k, v)
	}
	for k, v := range snap.Projects {
		if _, ok := state.settings.projects[k]; !ok {
			putOverlay(state.settings.projects, k, v.Settings)
		}
		v.Settings = nil
		state.projects[k] = cloneProject(v)
	}
	for k, v := range snap.Chapters {
		if _, ok := state.settings.chapters[k]; !ok {
			putOverlay(state.settings.chapters, k, v.Settings)
		}
		v.Settings = nil
		state.chapters[k] = cloneChapter(v)
	}
	for k, v := range snap.Timelines {
		if _, ok := state.settings.timelines[k]; !ok {
			putOverlay(state.settings.timelines, k, v.Settings)
		}
		v.Settings = nil
		state.timelines[k] = cloneTimeline(v)
	}
	for k, v := range snap.Blocks {
		if _, ok := state.settings.blocks[k]; !ok {
			putOverlay(state.settings.blocks, k, v.Settings)
		}
		v.Settings = nil
		state.blocks[k] = cloneBlock(v)
	}
	for k, v := range snap.MediaAssets {
		state.assets[k] = cloneMediaAsset(v)
	}
	dropOrphanOverlays(state.settings.projects, state.projects)
	dropOrphanOverlays(state.settings.chapters, state.chapters)
	dropOrphanOverlays(state.settings.timelines, state.timelines)
	dropOrphanOverlays(state.settings.blocks, state.blocks)
	s.state = state
	s.observe("restore", nil)
}

func dropOrphanOverlays[T any](overlays map[string]settings.Map, owners map[string]T) {
	for id := range overlays {
		if _, ok := owners[id]; !ok {
			delete(overlays, id)
		}
	}
}
