package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrReferentialIntegrity is returned when a delete would orphan a reference.
	ErrReferentialIntegrity = errors.New("referential integrity violation")
	// ErrAlreadyExists is returned when a create reuses an existing id.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidRange is returned for frame ranges that would break the interval invariants.
	ErrInvalidRange = errors.New("invalid frame range")
	// ErrUnsupportedKind is returned when an operation does not apply to an entity kind.
	ErrUnsupportedKind = errors.New("unsupported entity kind")
)

// NotFoundError reports a missing record of a given kind.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ReferencedError reports a delete refused because other records still point at the target.
type ReferencedError struct {
	Entity       EntityType
	ID           string
	ReferencedBy EntityType
	RefIDs       []string
}

func (e ReferencedError) Error() string {
	return fmt.Sprintf("%s %q still referenced by %d %s record(s)", e.Entity, e.ID, len(e.RefIDs), e.ReferencedBy)
}

// Is lets errors.Is(err, ErrReferentialIntegrity) match.
func (e ReferencedError) Is(target error) bool {
	return target == ErrReferentialIntegrity
}
