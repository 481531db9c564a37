package repository

import (
	"context"
	"errors"

	"acadrive/internal/model"
	"acadrive/internal/query"
	"acadrive/internal/vote"
)

var (
	// ErrNotFound is returned when the target row does not exist (or, for
	// Delete, is not owned by the caller).
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicateHash is returned by Create when the fingerprint uniqueness
	// constraint rejects the row.
	ErrDuplicateHash = errors.New("file hash already catalogued")
	// ErrAlreadyVoted is returned by IncrementVote when the voter already voted on the resource.
	ErrAlreadyVoted = vote.ErrAlreadyVoted
)

// ResourceRepository defines data access for catalog resources.
// No business logic here, strictly persistence operations.
type ResourceRepository interface {
	// Create inserts a new resource and returns the stored row.
	Create(ctx context.Context, r *model.Resource) (*model.Resource, error)

	// FindByID returns a resource by its ID.
	FindByID(ctx context.Context, id string) (*model.Resource, error)

	// FindByHash returns the resource carrying the fingerprint, or nil, nil if none does.
	FindByHash(ctx context.Context, hash string) (*model.Resource, error)

	// Query returns every resource matching q in ranking order.
	Query(ctx context.Context, q query.Query) ([]model.Resource, error)

	// Delete removes the resource if ownerID owns it.
	Delete(ctx context.Context, id, ownerID string) error

	// IncrementVote atomically applies one vote by voterID to the counters and returns the updated row.
	IncrementVote(ctx context.Context, id, voterID string, dir model.VoteDirection) (*model.Resource, error)
}
