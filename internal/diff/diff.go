// Package diff classifies what changed between two store snapshots. For each
// tracked entity kind it reports the records that were added, modified or
// deleted, keyed by id.
package diff

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"editfixture/internal/infra/persistence/memory"
	"editfixture/pkg/domain"

	"github.com/fxamacker/cbor/v2"
)

// DefaultKinds are the kinds compared when Options.Kinds is empty.
var DefaultKinds = []domain.EntityType{
	domain.EntityBlock,
	domain.EntityTimeline,
	domain.EntityMediaAsset,
}

// Options selects the kinds to compare. Chapters and projects are only
// compared when listed explicitly.
type Options struct {
	Kinds []domain.EntityType
}

// ModifiedEntry pairs the before and after versions of a changed record.
type ModifiedEntry[T any] struct {
	ID     string `json:"id"`
	Before T      `json:"before"`
	After  T      `json:"after"`
}

// KindDiff lists the changes for one entity kind. Every list is sorted by id.
type KindDiff[T any] struct {
	Added    []T                `json:"added"`
	Modified []ModifiedEntry[T] `json:"modified"`
	Deleted  []T                `json:"deleted"`
}

// Len returns the total number of changed records.
func (k *KindDiff[T]) Len() int {
	if k == nil {
		return 0
	}
	return len(k.Added) + len(k.Modified) + len(k.Deleted)
}

// Report is the outcome of comparing two snapshots. Untracked kinds are nil.
type Report struct {
	Kinds       []domain.EntityType          `json:"kinds"`
	Projects    *KindDiff[domain.Project]    `json:"projects,omitempty"`
	Chapters    *KindDiff[domain.Chapter]    `json:"chapters,omitempty"`
	Timelines   *KindDiff[domain.Timeline]   `json:"timelines,omitempty"`
	Blocks      *KindDiff[domain.Block]      `json:"blocks,omitempty"`
	MediaAssets *KindDiff[domain.MediaAsset] `json:"media_assets,omitempty"`
}

// KindSummary counts the changes recorded for one kind.
type KindSummary struct {
	Kind     domain.EntityType `json:"kind"`
	Added    int               `json:"added"`
	Modified int               `json:"modified"`
	Deleted  int               `json:"deleted"`
}

var equalityMode cbor.EncMode

func init() {
	opts := cbor.CanonicalEncOptions()
	opts.NilContainers = cbor.NilContainerAsEmpty
	opts.Time = cbor.TimeRFC3339Nano
	em, err := opts.EncMode()
	if err != nil {
		panic(fmt.Errorf("diff: cbor enc mode: %w", err))
	}
	equalityMode = em
}

// Equal reports deep structural equality using canonical CBOR encodings, so
// map key order and nil versus empty containers do not matter. Values that
// cannot be encoded compare unequal.
func Equal[T any](a, b T) bool {
	ea, err := equalityMode.Marshal(a)
	if err != nil {
		return false
	}
	eb, err := equalityMode.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ea, eb)
}

func compare[T any](before, after map[string]T) *KindDiff[T] {
	out := &KindDiff[T]{Added: []T{}, Modified: []ModifiedEntry[T]{}, Deleted: []T{}}
	for _, id := range sortedIDs(after) {
		prev, ok := before[id]
		if !ok {
			out.Added = append(out.Added, after[id])
			continue
		}
		if !Equal(prev, after[id]) {
			out.Modified = append(out.Modified, ModifiedEntry[T]{ID: id, Before: prev, After: after[id]})
		}
	}
	for _, id := range sortedIDs(before) {
		if _, ok := after[id]; !ok {
			out.Deleted = append(out.Deleted, before[id])
		}
	}
	return out
}

func sortedIDs[T any](m map[string]T) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func normalizeKinds(kinds []domain.EntityType) ([]domain.EntityType, error) {
	if len(kinds) == 0 {
		kinds = DefaultKinds
	}
	seen := make(map[domain.EntityType]struct{}, len(kinds))
	out := make([]domain.EntityType, 0, len(kinds))
	for _, k := range kinds {
		switch k {
		case domain.EntityProject, domain.EntityChapter, domain.EntityTimeline, domain.EntityBlock, domain.EntityMediaAsset:
		default:
			return nil, fmt.Errorf("diff %s: %w", k, domain.ErrUnsupportedKind)
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out, nil
}

// Compute compares two snapshots over the kinds selected by opts. Unknown
// kinds in opts yield domain.ErrUnsupportedKind.
func Compute(before, after memory.Snapshot, opts Options) (Report, error) {
	kinds, err := normalizeKinds(opts.Kinds)
	if err != nil {
		return Report{}, err
	}
	report := Report{Kinds: kinds}
	for _, k := range kinds {
		switch k {
		case domain.EntityProject:
			report.Projects = compare(before.Projects, after.Projects)
		case domain.EntityChapter:
			report.Chapters = compare(before.Chapters, after.Chapters)
		case domain.EntityTimeline:
			report.Timelines = compare(before.Timelines, after.Timelines)
		case domain.EntityBlock:
			report.Blocks = compare(before.Blocks, after.Blocks)
		case domain.EntityMediaAsset:
			report.MediaAssets = compare(before.MediaAssets, after.MediaAssets)
		}
	}
	return report, nil
}

// Summary returns per-kind change counts in the report's kind order.
func (r Report) Summary() []KindSummary {
	out := make([]KindSummary, 0, len(r.Kinds))
	for _, k := range r.Kinds {
		s := KindSummary{Kind: k}
		switch k {
		case domain.EntityProject:
			s.Added, s.Modified, s.Deleted = counts(r.Projects)
		case domain.EntityChapter:
			s.Added, s.Modified, s.Deleted = counts(r.Chapters)
		case domain.EntityTimeline:
			s.Added, s.Modified, s.Deleted = counts(r.Timelines)
		case domain.EntityBlock:
			s.Added, s.Modified, s.Deleted = counts(r.Blocks)
		case domain.EntityMediaAsset:
			s.Added, s.Modified, s.Deleted = counts(r.MediaAssets)
		}
		out = append(out, s)
	}
	return out
}

func counts[T any](k *KindDiff[T]) (int, int, int) {
	if k == nil {
		return 0, 0, 0
	}
	return len(k.Added), len(k.Modified), len(k.Deleted)
}

// Empty reports whether no tracked kind changed.
func (r Report) Empty() bool {
	return r.Projects.Len()+r.Chapters.Len()+r.Timelines.Len()+r.Blocks.Len()+r.MediaAssets.Len() == 0
}

// String renders the summary as "kind +added ~modified -deleted" lines.
func (r Report) String() string {
	var b strings.Builder
	for _, s := range r.Summary() {
		fmt.Fprintf(&b, "%s +%d ~%d -%d\n", s.Kind, s.Added, s.Modified, s.Deleted)
	}
	return b.String()
}
