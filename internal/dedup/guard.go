// Package dedup rejects uploads whose content already exists in the catalog.
//
// The check runs before any write and is an optimization only: two identical
// uploads racing each other can both pass it. The catalog's unique constraint
// on the fingerprint is the real guarantee, and its rejection is reported
// through the same ConflictError.
package dedup

import (
	"context"
	"errors"
	"fmt"

	fp "acadrive/internal/fingerprint"
	"acadrive/internal/model"
)

// ErrDuplicate matches every ConflictError.
var ErrDuplicate = errors.New("duplicate content")

// ConflictError names the existing catalog entry holding the same content.
type ConflictError struct {
	Fingerprint string
	ResourceID  string
	SubjectName string
}

func (e *ConflictError) Error() string {
	if e.SubjectName == "" {
		return "duplicate found: this exact content was already uploaded"
	}
	return fmt.Sprintf("duplicate found: this exact content was already uploaded as %q", e.SubjectName)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrDuplicate
}

// Finder looks a resource up by content fingerprint and returns (nil, nil)
// when there is none.
type Finder interface {
	FindByHash(ctx context.Context, hash string) (*model.Resource, error)
}

type Guard struct {
	finder Finder
}

func NewGuard(f Finder) *Guard {
	return &Guard{finder: f}
}

// Check returns a ConflictError when fingerprint is already catalogued, nil
// when the upload may proceed, or an error when the catalog could not be asked.
func (g *Guard) Check(ctx context.Context, fingerprint string) (*ConflictError, error) {
	if !fp.Valid(fingerprint) {
		return nil, fmt.Errorf("duplicate check: malformed fingerprint %q", fingerprint)
	}
	existing, err := g.finder.FindByHash(ctx, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if existing == nil {
		return nil, nil
	}
	return conflictFor(fingerprint, existing), nil
}

// Conflict builds the error reported when the catalog's uniqueness constraint
// rejected an insert. It looks the winning row up to name it and falls back to
// an anonymous conflict if that fails.
func (g *Guard) Conflict(ctx context.Context, fingerprint string) *ConflictError {
	existing, err := g.finder.FindByHash(ctx, fingerprint)
	if err != nil || existing == nil {
		return &ConflictError{Fingerprint: fingerprint}
	}
	return conflictFor(fingerprint, existing)
}

func conflictFor(fingerprint string, r *model.Resource) *ConflictError {
	return &ConflictError{Fingerprint: fingerprint, ResourceID: r.ID, SubjectName: r.SubjectName}
}
