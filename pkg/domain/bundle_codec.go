package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrFixtureNotFound is returned by fixture sources for an unknown bundle name.
var ErrFixtureNotFound = errors.New("fixture not found")

// BundleKinds lists the per-kind payload rows a persisted bundle is split into,
// in ingest order.
var BundleKinds = []string{"projects", "chapters", "timelines", "media_assets", "blocks", "enrichment"}

// EncodeKinds splits the bundle into one JSON document per kind.
func (b Bundle) EncodeKinds() (map[string][]byte, error) {
	out := make(map[string][]byte, len(BundleKinds))
	for _, kind := range BundleKinds {
		var (
			data []byte
			err  error
		)
		switch kind {
		case "projects":
			data, err = json.Marshal(nonNil(b.Projects))
		case "chapters":
			data, err = json.Marshal(nonNil(b.Chapters))
		case "timelines":
			data, err = json.Marshal(nonNil(b.Timelines))
		case "media_assets":
			data, err = json.Marshal(nonNil(b.MediaAssets))
		case "blocks":
			data, err = json.Marshal(nonNil(b.Blocks))
		case "enrichment":
			if b.Enrichment == nil {
				data = []byte("{}")
			} else {
				data, err = json.Marshal(b.Enrichment)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", kind, err)
		}
		out[kind] = data
	}
	return out, nil
}

// DecodeBundle reassembles a bundle from per-kind payloads. Unknown kinds are
// ignored and empty payloads leave the collection empty.
func DecodeBundle(name string, payloads map[string][]byte) (Bundle, error) {
	b := Bundle{Name: name}
	targets := map[string]any{
		"projects":     &b.Projects,
		"chapters":     &b.Chapters,
		"timelines":    &b.Timelines,
		"media_assets": &b.MediaAssets,
		"blocks":       &b.Blocks,
		"enrichment":   &b.Enrichment,
	}
	for _, kind := range BundleKinds {
		payload := payloads[kind]
		if len(payload) == 0 {
			continue
		}
		if err := json.Unmarshal(payload, targets[kind]); err != nil {
			return Bundle{}, fmt.Errorf("decode %s: %w", kind, err)
		}
	}
	if len(b.Enrichment) == 0 {
		b.Enrichment = nil
	}
	return b, nil
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
