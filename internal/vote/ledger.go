// Package vote implements the one-vote-per-resource state machine and the
// client-side ledger that remembers which resources were already voted on.
package vote

import (
	"context"
	"fmt"

	"acadrive/internal/model"
)

// KeyPrefix prefixes every ledger entry in the local store.
const KeyPrefix = "acadrive_vote_"

// Ledger remembers the terminal vote state per resource for one client.
// It is advisory: the catalog's counters never consult it.
type Ledger interface {
	// Lookup returns the recorded direction, or ok=false while the resource is unvoted.
	Lookup(ctx context.Context, resourceID string) (dir model.VoteDirection, ok bool, err error)
	// Commit records a terminal state. An existing state is never overwritten.
	Commit(ctx context.Context, resourceID string, dir model.VoteDirection) error
}

// KV is the subset of the local state store the ledger needs.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetIfAbsent(ctx context.Context, key, value string) (string, error)
	List(ctx context.Context, prefix string) (map[string]string, error)
	Delete(ctx context.Context, key string) error
}

// LocalLedger persists vote states in the client's local store.
type LocalLedger struct {
	kv KV
}

func NewLocalLedger(kv KV) *LocalLedger {
	return &LocalLedger{kv: kv}
}

func (l *LocalLedger) Lookup(ctx context.Context, resourceID string) (model.VoteDirection, bool, error) {
	v, ok, err := l.kv.Get(ctx, KeyPrefix+resourceID)
	if err != nil {
		return "", false, fmt.Errorf("lookup vote for %s: %w", resourceID, err)
	}
	if !ok {
		return "", false, nil
	}
	dir, err := model.ParseVoteDirection(v)
	if err != nil {
		// A corrupt entry still counts as voted; re-voting would count twice.
		return model.VoteDirection(v), true, nil
	}
	return dir, true, nil
}

func (l *LocalLedger) Commit(ctx context.Context, resourceID string, dir model.VoteDirection) error {
	if _, err := l.kv.SetIfAbsent(ctx, KeyPrefix+resourceID, string(dir)); err != nil {
		return fmt.Errorf("commit vote for %s: %w", resourceID, err)
	}
	return nil
}

// All returns every recorded vote keyed by resource ID.
func (l *LocalLedger) All(ctx context.Context) (map[string]model.VoteDirection, error) {
	entries, err := l.kv.List(ctx, KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	out := make(map[string]model.VoteDirection, len(entries))
	for k, v := range entries {
		out[k[len(KeyPrefix):]] = model.VoteDirection(v)
	}
	return out, nil
}

// Forget drops the entry for a resource that no longer exists in the catalog.
func (l *LocalLedger) Forget(ctx context.Context, resourceID string) error {
	if err := l.kv.Delete(ctx, KeyPrefix+resourceID); err != nil {
		return fmt.Errorf("forget vote for %s: %w", resourceID, err)
	}
	return nil
}

// NopLedger never remembers anything. It is used where the catalog itself
// enforces one vote per identity.
type NopLedger struct{}

func (NopLedger) Lookup(context.Context, string) (model.VoteDirection, bool, error) {
	return "", false, nil
}

func (NopLedger) Commit(context.Context, string, model.VoteDirection) error { return nil }
