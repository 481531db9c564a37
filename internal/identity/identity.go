// Package identity provides the pseudo-anonymous identifier that stands in for a
// user account. Identifiers are self-asserted and are used for convenience
// (ownership display, vote gating), never as a security boundary.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// StoreKey is the stable local key the client identity is persisted under.
const StoreKey = "acadrive_user_id"

// ErrMissing is returned when no identity is available for the caller.
var ErrMissing = errors.New("client identity is required")

// Provider yields the identity of the current caller.
type Provider interface {
	ID(ctx context.Context) (string, error)
}

// Store is the persisted state the Local provider reads and writes.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetIfAbsent(ctx context.Context, key, value string) (string, error)
}

// Local is the identity of one client installation. The identifier is created
// on the first call to ID, persisted, and cached for the lifetime of the value.
type Local struct {
	store Store
	newID func() string

	mu sync.Mutex
	id string
}

func NewLocal(store Store) *Local {
	return &Local{store: store, newID: uuid.NewString}
}

func (l *Local) ID(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.id != "" {
		return l.id, nil
	}

	id, ok, err := l.store.Get(ctx, StoreKey)
	if err != nil {
		return "", fmt.Errorf("load identity: %w", err)
	}
	if !ok || id == "" {
		// Another process sharing the store may win the insert; adopt its value.
		id, err = l.store.SetIfAbsent(ctx, StoreKey, l.newID())
		if err != nil {
			return "", fmt.Errorf("persist identity: %w", err)
		}
	}

	l.id = id
	return id, nil
}

type ctxKey struct{}

// WithID returns a context carrying a caller-supplied identity.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by WithID, if any.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Context resolves the identity per request from the context, as placed there
// by the HTTP identity middleware.
type Context struct{}

func (Context) ID(ctx context.Context) (string, error) {
	if id, ok := FromContext(ctx); ok {
		return id, nil
	}
	return "", ErrMissing
}
