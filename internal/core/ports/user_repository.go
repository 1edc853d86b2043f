package ports

import (
	"context"

	"github.com/streampulse/user-service/internal/core/domain"
)

// UserUpdate carries the mutable account fields. Nil pointers mean
// "leave unchanged".
type UserUpdate struct {
	FullName  *string
	Email     *string
	AvatarURL *string
	CoverURL  *string
	Password  *string // already hashed by the service layer
}

// UserRepository defines persistence operations for user accounts.
// The refresh-token methods exist so the session manager can enforce the
// single-valid-refresh-value invariant at the store boundary.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByUsernameOrEmail matches either field against the same value,
	// mirroring login-by-username-or-email.
	FindByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*domain.User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*domain.User, error)

	// SetRefreshToken unconditionally overwrites the stored refresh value,
	// invalidating whatever was there before.
	SetRefreshToken(ctx context.Context, userID, token string) error
	// ReplaceRefreshToken atomically swaps old for next, but only when the
	// stored value still equals old. Returns domain.ErrInvalidToken when the
	// compare fails (rotated away, revoked, or unknown user).
	ReplaceRefreshToken(ctx context.Context, userID, old, next string) error
	// ClearRefreshToken revokes the stored value so no rotation can succeed.
	ClearRefreshToken(ctx context.Context, userID string) error
}
