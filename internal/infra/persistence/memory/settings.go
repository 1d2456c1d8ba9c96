package memory

import (
	"fmt"
	"time"

	"editfixture/pkg/domain"
	"editfixture/pkg/domain/settings"
)

type overlay struct {
	kind       domain.EntityType
	maps       map[string]settings.Map
	stringOnly bool
	exists     func(id string) bool
	touch      func(id string, at time.Time)
}

func (s *Store) overlay(kind domain.EntityType) (overlay, error) {
	switch kind {
	case domain.EntityProject:
		return overlay{
			kind:       kind,
			maps:       s.state.settings.projects,
			stringOnly: true,
			exists:     func(id string) bool { _, ok := s.state.projects[id]; return ok },
			touch: func(id string, at time.Time) {
				p := s.state.projects[id]
				p.UpdatedAt = at
				s.state.projects[id] = p
			},
		}, nil
	case domain.EntityChapter:
		return overlay{
			kind:       kind,
			maps:       s.state.settings.chapters,
			stringOnly: true,
			exists:     func(id string) bool { _, ok := s.state.chapters[id]; return ok },
			touch: func(id string, at time.Time) {
				c := s.state.chapters[id]
				c.UpdatedAt = at
				s.state.chapters[id] = c
			},
		}, nil
	case domain.EntityTimeline:
		return overlay{
			kind:   kind,
			maps:   s.state.settings.timelines,
			exists: func(id string) bool { _, ok := s.state.timelines[id]; return ok },
			touch: func(id string, at time.Time) {
				t := s.state.timelines[id]
				t.UpdatedAt = at
				s.state.timelines[id] = t
			},
		}, nil
	case domain.EntityBlock:
		return overlay{
			kind:   kind,
			maps:   s.state.settings.blocks,
			exists: func(id string) bool { _, ok := s.state.blocks[id]; return ok },
			touch: func(id string, at time.Time) {
				b := s.state.blocks[id]
				b.UpdatedAt = at
				s.state.blocks[id] = b
			},
		}, nil
	default:
		return overlay{}, fmt.Errorf("settings for %s: %w", kind, domain.ErrUnsupportedKind)
	}
}

func (o overlay) check(key string, v settings.Value) error {
	if !o.stringOnly {
		return nil
	}
	if _, ok := v.Str(); !ok {
		return fmt.Errorf("%s setting %q: %w", o.kind, key, settings.ErrNotString)
	}
	return nil
}

// Setting returns a single overlay value.
func (s *Store) Setting(kind domain.EntityType, ownerID, key string) (settings.Value, bool) {
	o, err := s.overlay(kind)
	if err != nil {
		return settings.Value{}, false
	}
	v, ok := o.maps[ownerID][key]
	if !ok {
		return settings.Value{}, false
	}
	return v.Clone(), true
}

// Settings returns a copy of the owner's overlay. Unknown owners yield an empty map.
func (s *Store) Settings(kind domain.EntityType, ownerID string) settings.Map {
	o, err := s.overlay(kind)
	if err != nil {
		return settings.Map{}
	}
	m := o.maps[ownerID].Clone()
	if m == nil {
		return settings.Map{}
	}
	return m
}

// SettingsByPrefix returns the overlay entries whose key starts with prefix.
func (s *Store) SettingsByPrefix(kind domain.EntityType, ownerID, prefix string) settings.Map {
	o, err := s.overlay(kind)
	if err != nil {
		return settings.Map{}
	}
	return o.maps[ownerID].WithPrefix(prefix)
}

// SetSetting writes one overlay value. The owner must exist.
func (s *Store) SetSetting(kind domain.EntityType, ownerID, key string, value settings.Value) error {
	err := s.setSettings(kind, ownerID, settings.Map{key: value})
	s.observe("set_setting", err)
	return err
}

// SetSettings merges values into the owner's overlay. Either every value is
// written or, on a validation failure, none is.
func (s *Store) SetSettings(kind domain.EntityType, ownerID string, values settings.Map) error {
	err := s.setSettings(kind, ownerID, values)
	s.observe("set_settings", err)
	return err
}

func (s *Store) setSettings(kind domain.EntityType, ownerID string, values settings.Map) error {
	o, err := s.overlay(kind)
	if err != nil {
		return err
	}
	if !o.exists(ownerID) {
		return notFound(kind, ownerID)
	}
	for _, key := range values.Keys() {
		if err := o.check(key, values[key]); err != nil {
			return err
		}
	}
	if len(values) == 0 {
		return nil
	}
	merged := o.maps[ownerID].Clone()
	if merged == nil {
		merged = settings.Map{}
	}
	for k, v := range values {
		merged[k] = v.Clone()
	}
	o.maps[ownerID] = merged
	now := s.now()
	o.touch(ownerID, now)
	s.record(kind, domain.ActionUpdate, ownerID, now)
	return nil
}

// DeleteSetting removes one key. Missing owners or keys are a no-op.
func (s *Store) DeleteSetting(kind domain.EntityType, ownerID, key string) bool {
	removed := s.deleteSetting(kind, ownerID, key)
	s.observe("delete_setting", nil)
	return removed
}

func (s *Store) deleteSetting(kind domain.EntityType, ownerID, key string) bool {
	o, err := s.overlay(kind)
	if err != nil {
		return false
	}
	m, ok := o.maps[ownerID]
	if !ok {
		return false
	}
	if _, ok := m[key]; !ok {
		return false
	}
	delete(m, key)
	if len(m) == 0 {
		delete(o.maps, ownerID)
	}
	now := s.now()
	o.touch(ownerID, now)
	s.record(kind, domain.ActionUpdate, ownerID, now)
	return true
}

// DeleteAllSettings clears the owner's overlay and, with it, the entity's
// settings projection. Missing owners are a no-op.
func (s *Store) DeleteAllSettings(kind domain.EntityType, ownerID string) bool {
	removed := s.deleteAllSettings(kind, ownerID)
	s.observe("delete_all_settings", nil)
	return removed
}

func (s *Store) deleteAllSettings(kind domain.EntityType, ownerID string) bool {
	o, err := s.overlay(kind)
	if err != nil {
		return false
	}
	if _, ok := o.maps[ownerID]; !ok {
		return false
	}
	delete(o.maps, ownerID)
	now := s.now()
	o.touch(ownerID, now)
	s.record(kind, domain.ActionUpdate, ownerID, now)
	return true
}
