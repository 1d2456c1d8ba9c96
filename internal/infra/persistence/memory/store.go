// Package memory provides the in-memory fixture store: typed collections per
// entity kind, settings overlays, ordering and interval operations, and
// point-in-time snapshots used to diff what a scenario changed.
//
// A Store assumes a single logical caller. It performs no locking; hosts that
// share one across goroutines must serialise access themselves.
package memory

import (
	"sort"
	"time"

	"editfixture/pkg/domain"
	"editfixture/pkg/domain/settings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type (
	// Project aliases domain.Project.
	Project = domain.Project
	// Chapter aliases domain.Chapter.
	Chapter = domain.Chapter
	// Timeline aliases domain.Timeline.
	Timeline = domain.Timeline
	// Block aliases domain.Block.
	Block = domain.Block
	// MediaAsset aliases domain.MediaAsset.
	MediaAsset = domain.MediaAsset
	// Change aliases domain.Change recorded in the journal.
	Change = domain.Change
)

// Compile-time contract assertions.
var (
	_ domain.Ingester = (*Store)(nil)
	_ domain.Reader   = (*Store)(nil)
)

// MetricsRecorder observes store operation outcomes.
type MetricsRecorder interface {
	Observe(operation string, success bool)
}

type overlayState struct {
	projects  map[string]settings.Map
	chapters  map[string]settings.Map
	timelines map[string]settings.Map
	blocks    map[string]settings.Map
}

type memoryState struct {
	projects  map[string]Project
	chapters  map[string]Chapter
	timelines map[string]Timeline
	blocks    map[string]Block
	assets    map[string]MediaAsset
	settings  overlayState
}

func newMemoryState() memoryState {
	return memoryState{
		projects:  make(map[string]Project),
		chapters:  make(map[string]Chapter),
		timelines: make(map[string]Timeline),
		blocks:    make(map[string]Block),
		assets:    make(map[string]MediaAsset),
		settings: overlayState{
			projects:  make(map[string]settings.Map),
			chapters:  make(map[string]settings.Map),
			timelines: make(map[string]settings.Map),
			blocks:    make(map[string]settings.Map),
		},
	}
}

// Store is the in-memory fixture repository.
type Store struct {
	state   memoryState
	journal []Change
	nowFn   func() time.Time
	idFn    func() string
	log     zerolog.Logger
	metrics MetricsRecorder
}

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a structured logger. Mutations log at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithMetrics attaches an operation recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Store) { s.metrics = m }
}

// WithClock overrides the time source used for CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.nowFn = now }
}

// WithIDGenerator overrides server-assigned id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.idFn = fn }
}

// NewStore constructs an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		state: newMemoryState(),
		nowFn: func() time.Time { return time.Now().UTC() },
		idFn:  func() string { return uuid.NewString() },
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NowFunc returns the time provider used by the store.
func (s *Store) NowFunc() func() time.Time { return s.nowFn }

func (s *Store) newID() string { return s.idFn() }

func (s *Store) now() time.Time { return s.nowFn() }

func (s *Store) observe(op string, err error) {
	if s.metrics != nil {
		s.metrics.Observe(op, err == nil)
	}
	if err != nil {
		s.log.Warn().Str("op", op).Err(err).Msg("fixture store operation failed")
	}
}

func (s *Store) record(entity domain.EntityType, action domain.Action, id string, at time.Time) {
	s.journal = append(s.journal, Change{Entity: entity, Action: action, ID: id, At: at})
	s.log.Debug().Str("entity", string(entity)).Str("action", string(action)).Str("id", id).Msg("fixture mutation")
}

// Journal returns the mutations applied since construction or the last ResetJournal.
func (s *Store) Journal() []Change {
	return append([]Change(nil), s.journal...)
}

// ResetJournal clears the mutation journal.
func (s *Store) ResetJournal() {
	s.journal = nil
}

func cloneProject(p Project) Project {
	cp := p
	cp.Settings = p.Settings.Clone()
	return cp
}

func cloneChapter(c Chapter) Chapter {
	cp := c
	cp.Settings = c.Settings.Clone()
	return cp
}

func cloneTimeline(t Timeline) Timeline {
	cp := t
	cp.Settings = t.Settings.Clone()
	return cp
}

func cloneBlock(b Block) Block {
	cp := b
	if b.MediaAssetID != nil {
		id := *b.MediaAssetID
		cp.MediaAssetID = &id
	}
	if b.FileRelativeEndFrame != nil {
		end := *b.FileRelativeEndFrame
		cp.FileRelativeEndFrame = &end
	}
	cp.Settings = b.Settings.Clone()
	cp.FocusPoints = domain.CloneFocusPoints(b.FocusPoints)
	cp.TranscriptionSegments = domain.CloneTranscription(b.TranscriptionSegments)
	cp.Faces = domain.CloneFaces(b.Faces)
	return cp
}

func cloneMediaAsset(a MediaAsset) MediaAsset {
	cp := a
	cp.Metadata = a.Metadata.Clone()
	cp.FocusPoints = domain.CloneFocusPoints(a.FocusPoints)
	cp.TranscriptionSegments = domain.CloneTranscription(a.TranscriptionSegments)
	cp.Faces = domain.CloneFaces(a.Faces)
	return cp
}

func cloneOverlays(in map[string]settings.Map) map[string]settings.Map {
	out := make(map[string]settings.Map, len(in))
	for k, v := range in {
		out[k] = v.Clone()
	}
	return out
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.projects {
		cloned.projects[k] = cloneProject(v)
	}
	for k, v := range s.chapters {
		cloned.chapters[k] = cloneChapter(v)
	}
	for k, v := range s.timelines {
		cloned.timelines[k] = cloneTimeline(v)
	}
	for k, v := range s.blocks {
		cloned.blocks[k] = cloneBlock(v)
	}
	for k, v := range s.assets {
		cloned.assets[k] = cloneMediaAsset(v)
	}
	cloned.settings = overlayState{
		projects:  cloneOverlays(s.settings.projects),
		chapters:  cloneOverlays(s.settings.chapters),
		timelines: cloneOverlays(s.settings.timelines),
		blocks:    cloneOverlays(s.settings.blocks),
	}
	return cloned
}

// The overlay maps are the only physical copy of settings; entity records are
// stored with a nil Settings field and decorated with a copy on every read.

func decorateProject(state *memoryState, p Project) Project {
	p.Settings = state.settings.projects[p.ID].Clone()
	return p
}

func decorateChapter(state *memoryState, c Chapter) Chapter {
	c.Settings = state.settings.chapters[c.ID].Clone()
	return c
}

func decorateTimeline(state *memoryState, t Timeline) Timeline {
	t.Settings = state.settings.timelines[t.ID].Clone()
	return t
}

func decorateBlock(state *memoryState, b Block) Block {
	b.Settings = state.settings.blocks[b.ID].Clone()
	return b
}

// putOverlay stores m as the owner's overlay; empty maps remove the entry.
func putOverlay(overlays map[string]settings.Map, ownerID string, m settings.Map) {
	if len(m) == 0 {
		delete(overlays, ownerID)
		return
	}
	overlays[ownerID] = m.Clone()
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
