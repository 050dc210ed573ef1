package repository

import (
	"context"
	"errors"

	"botdash-server-go/internal/domain/identity/aggregate"
)

// ErrDuplicateEmail is returned by Create when another record already
// holds the email. Callers recover from it; it is never surfaced to
// clients as a conflict.
var ErrDuplicateEmail = errors.New("identity: duplicate email")

// IdentityRepository is the persistence contract the reconciler runs
// against. Lookups return (nil, nil) when no record matches.
type IdentityRepository interface {
	// FindByID fetches by primary key.
	FindByID(ctx context.Context, id string) (*aggregate.Identity, error)
	// FindByEmailFold matches the whole email case-insensitively with
	// surrounding whitespace trimmed on both sides of the comparison.
	FindByEmailFold(ctx context.Context, email string) (*aggregate.Identity, error)
	// FindByEmail matches by plain, untrimmed equality.
	FindByEmail(ctx context.Context, email string) (*aggregate.Identity, error)
	FindAll(ctx context.Context) ([]*aggregate.Identity, error)
	Create(ctx context.Context, identity *aggregate.Identity) error
	Update(ctx context.Context, identity *aggregate.Identity) error
	Delete(ctx context.Context, id string) error
}
