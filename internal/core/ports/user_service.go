package ports

import (
	"context"
	"io"

	"github.com/streampulse/user-service/internal/core/domain"
)

// FileInput is an uploaded file as received from a multipart request.
type FileInput struct {
	Reader      io.Reader
	Size        int64
	ContentType string
}

// RegisterInput carries the registration fields plus the avatar (required)
// and cover image (optional) uploads.
type RegisterInput struct {
	Username string
	Email    string
	FullName string
	Password string
	Avatar   *FileInput
	Cover    *FileInput
}

// UpdateAccountInput carries the editable profile fields.
type UpdateAccountInput struct {
	FullName string
	Email    string
}

type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.PublicUser, error)
	// Login resolves by username or email, verifies the password, and issues
	// a session. Returns the sanitized user alongside the pair.
	Login(ctx context.Context, usernameOrEmail, password string) (*domain.PublicUser, *TokenPair, error)
	Logout(ctx context.Context, userID string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	GetByID(ctx context.Context, userID string) (*domain.PublicUser, error)
	UpdateAccount(ctx context.Context, userID string, in UpdateAccountInput) (*domain.PublicUser, error)
	UpdateAvatar(ctx context.Context, userID string, file *FileInput) (*domain.PublicUser, error)
	UpdateCoverImage(ctx context.Context, userID string, file *FileInput) (*domain.PublicUser, error)
}
