package vote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"acadrive/internal/identity"
	"acadrive/internal/model"
)

var (
	// ErrInvalidDirection is returned for a direction other than up or down.
	ErrInvalidDirection = errors.New("invalid vote direction")
	// ErrAlreadyVoted is reported by a Store that enforces one vote per voter.
	ErrAlreadyVoted = errors.New("already voted")
)

// Store performs the authoritative, atomic counter increment.
type Store interface {
	IncrementVote(ctx context.Context, resourceID, voterID string, dir model.VoteDirection) (*model.Resource, error)
}

// Outcome is the result of a vote request.
type Outcome struct {
	Resource model.Resource
	// Applied is false when the request was ignored because the pair had
	// already reached a terminal state.
	Applied bool
	// Previous is the terminal state that caused a request to be ignored.
	Previous model.VoteDirection
}

// Applier runs the Unvoted -> Upvoted|Downvoted state machine for the current identity.
type Applier struct {
	ledger   Ledger
	store    Store
	identity identity.Provider
	log      *slog.Logger
}

func NewApplier(ledger Ledger, store Store, id identity.Provider, log *slog.Logger) *Applier {
	if log == nil {
		log = slog.Default()
	}
	return &Applier{ledger: ledger, store: store, identity: id, log: log}
}

// Apply votes on current in direction dir. publish, when non-nil, receives the
// optimistic aggregate before the store is contacted and the original aggregate
// again if the increment fails. A request from a terminal state is a no-op.
func (a *Applier) Apply(ctx context.Context, current model.Resource, dir model.VoteDirection, publish func(model.Resource)) (Outcome, error) {
	if !dir.Valid() {
		return Outcome{Resource: current}, fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
	}
	if publish == nil {
		publish = func(model.Resource) {}
	}

	voter, err := a.identity.ID(ctx)
	if err != nil {
		return Outcome{Resource: current}, err
	}

	prev, voted, err := a.ledger.Lookup(ctx, current.ID)
	if err != nil {
		return Outcome{Resource: current}, err
	}
	if voted {
		return Outcome{Resource: current, Previous: prev}, nil
	}

	publish(current.WithVote(dir))

	updated, err := a.store.IncrementVote(ctx, current.ID, voter, dir)
	if err != nil {
		publish(current)
		if errors.Is(err, ErrAlreadyVoted) {
			a.log.InfoContext(ctx, "vote ignored by store", "resource_id", current.ID, "direction", dir)
			return Outcome{Resource: current}, nil
		}
		return Outcome{Resource: current}, err
	}

	if err := a.ledger.Commit(ctx, current.ID, dir); err != nil {
		// The increment is already durable; only the advisory record is lost.
		a.log.WarnContext(ctx, "vote counted but ledger commit failed",
			"resource_id", current.ID, "direction", dir, "error", err)
	}

	result := current.WithVote(dir)
	if updated != nil {
		result = *updated
	}
	return Outcome{Resource: result, Applied: true}, nil
}
