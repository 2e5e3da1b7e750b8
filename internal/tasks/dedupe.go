package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/shared"
)

// Resolution tells whether [Resolve] reused a stored entity or created one.
type Resolution int

const (
	Existing Resolution = iota
	Created
)

func (r Resolution) String() string {
	if r == Created {
		return "created"
	}
	return "existing"
}

// Resolve returns the entity stored under key, creating it from build when absent.
//
// Lookup errors other than [shared.ErrNotFound] and create errors propagate. A create rejected with
// [shared.ErrDuplicateKey] means another writer won the race; the winner is re-read and returned as [Existing].
func Resolve[T models.Entity](ctx context.Context, store models.EntityStore[T], key string, build func() T) (T, Resolution, error) {
	var zero T

	found, err := store.FindByNaturalKey(ctx, key)
	if err == nil {
		return found, Existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return zero, Existing, fmt.Errorf("lookup %q: %w", key, err)
	}

	created, err := store.Create(ctx, build())
	if err == nil {
		return created, Created, nil
	}
	if !errors.Is(err, shared.ErrDuplicateKey) {
		return zero, Existing, err
	}

	found, lookupErr := store.FindByNaturalKey(ctx, key)
	if lookupErr != nil {
		return zero, Existing, fmt.Errorf("%w (re-read failed: %v)", err, lookupErr)
	}
	return found, Existing, nil
}
