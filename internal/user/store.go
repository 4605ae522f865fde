package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// Store persists users. Email uniqueness is enforced by the implementation,
// so concurrent inserts of the same email leave exactly one record and the
// loser gets ErrDuplicateEmail.
type Store interface {
	// FindAll returns every user with the excluded fields zeroed.
	FindAll(ctx context.Context, exclude ...Field) ([]User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	// Insert assigns an ID when the user has none.
	Insert(ctx context.Context, u *User) (*User, error)
	// Save overwrites every mutable field of an existing user and stamps u.UpdatedAt.
	Save(ctx context.Context, u *User) error
}
