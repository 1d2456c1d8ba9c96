// Package domain defines the fixture entities, enrichment value types, and
// error taxonomy shared by the fixture store and its collaborators.
package domain

import (
	"time"

	"editfixture/pkg/domain/settings"
)

// EntityType identifies the kind of record held by the fixture store.
type EntityType string

// Supported entity type identifiers used in journal entries, ordering calls and diff reports.
const (
	// EntityProject identifies a project record.
	EntityProject EntityType = "project"
	// EntityChapter identifies a chapter record owned by a project.
	EntityChapter EntityType = "chapter"
	// EntityTimeline identifies a timeline record owned by a chapter.
	EntityTimeline EntityType = "timeline"
	// EntityBlock identifies a block (clip) record owned by a timeline.
	EntityBlock EntityType = "block"
	// EntityMediaAsset identifies a media asset owned by a project.
	EntityMediaAsset EntityType = "media_asset"
)

// Base contains common fields for all fixture records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Project is the root of the ownership chain.
type Project struct {
	Base
	Name     string       `json:"name"`
	Settings settings.Map `json:"settings,omitempty"`
}

// Chapter groups timelines within a project.
type Chapter struct {
	Base
	ProjectID  string       `json:"project_id"`
	Title      string       `json:"title"`
	OrderIndex int          `json:"order_index"`
	Settings   settings.Map `json:"settings,omitempty"`
}

// Timeline is an ordered track of blocks within a chapter.
type Timeline struct {
	Base
	ChapterID  string       `json:"chapter_id"`
	Type       string       `json:"type"`
	Label      string       `json:"label"`
	OrderIndex int          `json:"order_index"`
	Settings   settings.Map `json:"settings,omitempty"`
}

// Block places a frame range of a media asset on a timeline.
//
// FocusPoints, TranscriptionSegments and Faces are copied from the referenced
// media asset at ingest time and are never live references.
type Block struct {
	Base
	TimelineID             string                 `json:"timeline_id"`
	BlockType              string                 `json:"block_type"`
	MediaAssetID           *string                `json:"media_asset_id"`
	TimelineOffsetInFrames int64                  `json:"timeline_offset_in_frames"`
	FileRelativeStartFrame int64                  `json:"file_relative_start_frame"`
	FileRelativeEndFrame   *int64                 `json:"file_relative_end_frame"`
	OrderIndex             int                    `json:"order_index"`
	Settings               settings.Map           `json:"settings,omitempty"`
	FocusPoints            []FocusPoint           `json:"focus_points,omitempty"`
	TranscriptionSegments  []TranscriptionSegment `json:"transcription_segments,omitempty"`
	Faces                  []Face                 `json:"faces,omitempty"`
}

// Length returns the file-relative frame count, or 0 when the end is open.
func (b Block) Length() int64 {
	if b.FileRelativeEndFrame == nil {
		return 0
	}
	return *b.FileRelativeEndFrame - b.FileRelativeStartFrame
}

// TimelineEnd returns the exclusive end of the on-timeline interval.
func (b Block) TimelineEnd() int64 {
	return b.TimelineOffsetInFrames + b.Length()
}

// Overlaps reports whether the half-open on-timeline interval intersects [start, end).
func (b Block) Overlaps(start, end int64) bool {
	return b.TimelineOffsetInFrames < end && b.TimelineEnd() > start
}

// MediaAsset is a source media file with its enrichment data.
type MediaAsset struct {
	Base
	ProjectID             string                 `json:"project_id"`
	MediaType             string                 `json:"media_type"`
	FileName              string                 `json:"file_name"`
	FilePath              string                 `json:"file_path"`
	OrderIndex            int                    `json:"order_index"`
	Metadata              settings.Map           `json:"metadata,omitempty"`
	FocusPoints           []FocusPoint           `json:"focus_points,omitempty"`
	TranscriptionSegments []TranscriptionSegment `json:"transcription_segments,omitempty"`
	Faces                 []Face                 `json:"faces,omitempty"`
}

// FocusPoint marks a region of interest at a file-relative frame.
type FocusPoint struct {
	Frame int64   `json:"frame"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label,omitempty"`
}

// TranscriptionSegment is a span of recognised speech.
type TranscriptionSegment struct {
	StartFrame int64  `json:"start_frame"`
	EndFrame   int64  `json:"end_frame"`
	Speaker    string `json:"speaker,omitempty"`
	Text       string `json:"text"`
}

// Face is a detected person and the frames they appear in.
type Face struct {
	ID     string  `json:"id"`
	Name   string  `json:"name,omitempty"`
	Frames []int64 `json:"frames,omitempty"`
}

// Enrichment carries the asset-sourced collections supplied by the fixture loader.
type Enrichment struct {
	FocusPoints           []FocusPoint           `json:"focus_points,omitempty"`
	TranscriptionSegments []TranscriptionSegment `json:"transcription_segments,omitempty"`
	Faces                 []Face                 `json:"faces,omitempty"`
}

// Bundle is a fully materialised fixture ready for ingest.
type Bundle struct {
	Name        string                `json:"name"`
	Projects    []Project             `json:"projects"`
	Chapters    []Chapter             `json:"chapters"`
	Timelines   []Timeline            `json:"timelines"`
	MediaAssets []MediaAsset          `json:"media_assets"`
	Blocks      []Block               `json:"blocks"`
	Enrichment  map[string]Enrichment `json:"enrichment,omitempty"`
}

// Change records a single applied mutation.
type Change struct {
	Entity EntityType `json:"entity"`
	Action Action     `json:"action"`
	ID     string     `json:"id"`
	At     time.Time  `json:"at"`
}

// Action indicates the type of modification performed.
type Action string

// Change actions recorded in the store journal.
const (
	// ActionCreate indicates an entity was created or ingested.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// CloneFocusPoints copies a focus point slice.
func CloneFocusPoints(in []FocusPoint) []FocusPoint {
	if in == nil {
		return nil
	}
	return append([]FocusPoint(nil), in...)
}

// CloneTranscription copies a transcription slice.
func CloneTranscription(in []TranscriptionSegment) []TranscriptionSegment {
	if in == nil {
		return nil
	}
	return append([]TranscriptionSegment(nil), in...)
}

// CloneFaces deep-copies faces including their frame lists.
func CloneFaces(in []Face) []Face {
	if in == nil {
		return nil
	}
	out := make([]Face, len(in))
	for i, f := range in {
		out[i] = f
		if f.Frames != nil {
			out[i].Frames = append([]int64(nil), f.Frames...)
		}
	}
	return out
}
