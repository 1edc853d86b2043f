package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/streampulse/user-service/internal/core/domain"
	"github.com/streampulse/user-service/internal/core/ports"
)

const (
	avatarPrefix = "avatars"
	coverPrefix  = "covers"
)

// UserService implements registration, login, logout, and profile updates.
// Session lifecycle calls are delegated to the SessionManager.
type UserService struct {
	repo     ports.UserRepository
	sessions ports.SessionManager
	storage  ports.ObjectStorage
	logger   zerolog.Logger
}

func NewUserService(repo ports.UserRepository, sessions ports.SessionManager, storage ports.ObjectStorage, logger zerolog.Logger) *UserService {
	return &UserService{repo: repo, sessions: sessions, storage: storage, logger: logger}
}

// Register validates input, uploads the avatar (required) and cover image
// (optional), hashes the password, and persists the account. Username and
// email are stored lowercased so login can match case-insensitively. The
// returned projection never contains the password hash or refresh value.
func (s *UserService) Register(ctx context.Context, in ports.RegisterInput) (*domain.PublicUser, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))
	fullName := strings.TrimSpace(in.FullName)
	if username == "" || email == "" || fullName == "" || strings.TrimSpace(in.Password) == "" {
		return nil, fmt.Errorf("%w: all fields are required", domain.ErrValidation)
	}
	if in.Avatar == nil {
		return nil, fmt.Errorf("%w: avatar file is required", domain.ErrValidation)
	}

	if _, err := s.repo.FindByUsernameOrEmail(ctx, username); err == nil {
		return nil, domain.ErrUserExists
	}
	if _, err := s.repo.FindByUsernameOrEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	avatarURL, err := s.storage.Upload(ctx, avatarPrefix, in.Avatar.Reader, in.Avatar.Size, in.Avatar.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}
	coverURL := ""
	if in.Cover != nil {
		coverURL, err = s.storage.Upload(ctx, coverPrefix, in.Cover.Reader, in.Cover.Size, in.Cover.ContentType)
		if err != nil {
			return nil, fmt.Errorf("upload cover image: %w", err)
		}
	}

	now := time.Now().UTC()
	created, err := s.repo.Create(ctx, &domain.User{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		AvatarURL:    avatarURL,
		CoverURL:     coverURL,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", created.ID).Str("username", created.Username).Msg("user registered")
	return created.Public(), nil
}

// Login resolves the account by username or email, verifies the password,
// and issues a session on success.
func (s *UserService) Login(ctx context.Context, usernameOrEmail, password string) (*domain.PublicUser, *ports.TokenPair, error) {
	if usernameOrEmail == "" || password == "" {
		return nil, nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsernameOrEmail(ctx, strings.ToLower(usernameOrEmail))
	if err != nil {
		return nil, nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, domain.ErrInvalidCredentials
	}

	pair, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user logged in")
	return user.Public(), pair, nil
}

// Logout revokes the user's session.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	return s.sessions.Revoke(ctx, userID)
}

// ChangePassword verifies the current password and stores a new hash. It
// deliberately leaves existing sessions valid, matching the behavior of the
// rest of the account flows.
func (s *UserService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return fmt.Errorf("%w: new password is required", domain.ErrValidation)
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	hashed := string(hash)
	if _, err := s.repo.Update(ctx, userID, ports.UserUpdate{Password: &hashed}); err != nil {
		return err
	}

	s.logger.Info().Str("user_id", userID).Msg("password changed")
	return nil
}

func (s *UserService) GetByID(ctx context.Context, userID string) (*domain.PublicUser, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

func (s *UserService) UpdateAccount(ctx context.Context, userID string, in ports.UpdateAccountInput) (*domain.PublicUser, error) {
	fullName := strings.TrimSpace(in.FullName)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if fullName == "" || email == "" {
		return nil, fmt.Errorf("%w: full name and email are required", domain.ErrValidation)
	}

	user, err := s.repo.Update(ctx, userID, ports.UserUpdate{FullName: &fullName, Email: &email})
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

func (s *UserService) UpdateAvatar(ctx context.Context, userID string, file *ports.FileInput) (*domain.PublicUser, error) {
	return s.updateImage(ctx, userID, file, avatarPrefix)
}

func (s *UserService) UpdateCoverImage(ctx context.Context, userID string, file *ports.FileInput) (*domain.PublicUser, error) {
	return s.updateImage(ctx, userID, file, coverPrefix)
}

func (s *UserService) updateImage(ctx context.Context, userID string, file *ports.FileInput, prefix string) (*domain.PublicUser, error) {
	if file == nil {
		return nil, fmt.Errorf("%w: image file is required", domain.ErrValidation)
	}

	url, err := s.storage.Upload(ctx, prefix, file.Reader, file.Size, file.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	upd := ports.UserUpdate{}
	if prefix == avatarPrefix {
		upd.AvatarURL = &url
	} else {
		upd.CoverURL = &url
	}
	user, err := s.repo.Update(ctx, userID, upd)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}
