package domain

// Ingester accepts already-parsed fixture records. Fixture loaders depend on
// this rather than on a concrete store.
type Ingester interface {
	LoadBundle(Bundle) error
}

// Reader is the read side of the fixture store used by reporting collaborators.
type Reader interface {
	GetProject(id string) (Project, bool)
	GetChapter(id string) (Chapter, bool)
	GetTimeline(id string) (Timeline, bool)
	GetBlock(id string) (Block, bool)
	GetMediaAsset(id string) (MediaAsset, bool)
	ListProjects() []Project
	ListChapters() []Chapter
	ListTimelines() []Timeline
	ListBlocks() []Block
	ListMediaAssets() []MediaAsset
}
