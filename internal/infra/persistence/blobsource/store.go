// Package blobsource keeps fixture bundles as JSON documents in a blob store,
// one object per bundle under fixtures/<name>.json.
package blobsource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"editfixture/internal/blob"
	"editfixture/pkg/domain"
)

const (
	keyPrefix   = "fixtures/"
	keySuffix   = ".json"
	contentType = "application/json"
)

// Store is a fixture source over any blob backend.
type Store struct {
	blobs blob.Store
}

// New wraps a blob store.
func New(blobs blob.Store) *Store { return &Store{blobs: blobs} }

// Key returns the object key a bundle name is stored under.
func Key(name string) string { return keyPrefix + name + keySuffix }

// Load fetches and decodes the named bundle. The bundle name always follows
// the object key, whatever the document says.
func (s *Store) Load(ctx context.Context, name string) (domain.Bundle, error) {
	_, rc, err := s.blobs.Get(ctx, Key(name))
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return domain.Bundle{}, fmt.Errorf("%q: %w", name, domain.ErrFixtureNotFound)
		}
		return domain.Bundle{}, err
	}
	defer func() { _ = rc.Close() }()
	var bundle domain.Bundle
	if err := json.NewDecoder(rc).Decode(&bundle); err != nil {
		return domain.Bundle{}, fmt.Errorf("decode fixture %q: %w", name, err)
	}
	bundle.Name = name
	return bundle, nil
}

// List returns bundle names derived from object keys, in key order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	infos, err := s.blobs.List(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		name, ok := strings.CutSuffix(strings.TrimPrefix(info.Key, keyPrefix), keySuffix)
		if !ok || name == "" {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// Save writes the bundle, replacing an existing object.
func (s *Store) Save(ctx context.Context, bundle domain.Bundle) error {
	if bundle.Name == "" {
		return fmt.Errorf("save fixture: name required")
	}
	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encode fixture %q: %w", bundle.Name, err)
	}
	_, err = s.blobs.Put(ctx, Key(bundle.Name), bytes.NewReader(data), blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"fixture": bundle.Name},
		Overwrite:   true,
	})
	return err
}

// Delete removes the named bundle, reporting whether it existed.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	return s.blobs.Delete(ctx, Key(name))
}

// Close is a no-op; the blob store has no handle to release.
func (s *Store) Close() error { return nil }
