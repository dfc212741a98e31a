package users

import "context"

// Repo persists users. Create and Update report ErrUsernameTaken or
// ErrEmailTaken when a uniqueness constraint would be violated.
type Repo interface {
	Create(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, userID string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Update(ctx context.Context, user User) (User, error)
	Delete(ctx context.Context, userID string) error
}
