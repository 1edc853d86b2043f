package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/streampulse/user-service/internal/core/domain"
	"github.com/streampulse/user-service/internal/core/ports"
)

// SessionManager produces and invalidates paired tokens while enforcing the
// single-valid-refresh-value invariant: at most one refresh token is
// accepted per user at any time, and rotation is single-use.
type SessionManager struct {
	repo    ports.UserRepository
	access  ports.TokenCodec
	refresh ports.TokenCodec
	logger  zerolog.Logger
}

func NewSessionManager(repo ports.UserRepository, access, refresh ports.TokenCodec, logger zerolog.Logger) *SessionManager {
	return &SessionManager{repo: repo, access: access, refresh: refresh, logger: logger}
}

// Issue mints a new access/refresh pair and persists the refresh value,
// overwriting any prior one. The pair is returned only after the store write
// succeeds, so a caller observing success knows the stored value matches.
func (m *SessionManager) Issue(ctx context.Context, userID string) (*ports.TokenPair, error) {
	accessToken, err := m.access.Sign(userID)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refreshToken, err := m.refresh.Sign(userID)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := m.repo.SetRefreshToken(ctx, userID, refreshToken); err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}

	return &ports.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Rotate exchanges a presented refresh token for a fresh pair. The store
// write is a compare-and-swap on the presented value, so a superseded token
// is rejected even though its signature still verifies, and two concurrent
// rotations with the same token cannot both succeed.
func (m *SessionManager) Rotate(ctx context.Context, presented string) (*ports.TokenPair, error) {
	if presented == "" {
		return nil, domain.ErrInvalidToken
	}

	userID, err := m.refresh.Verify(presented)
	if err != nil {
		return nil, err
	}

	accessToken, err := m.access.Sign(userID)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refreshToken, err := m.refresh.Sign(userID)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := m.repo.ReplaceRefreshToken(ctx, userID, presented, refreshToken); err != nil {
		if errors.Is(err, domain.ErrInvalidToken) || errors.Is(err, domain.ErrUserNotFound) {
			m.logger.Warn().Str("user_id", userID).Msg("refresh token rotation rejected")
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	return &ports.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Revoke clears the stored refresh value so no future rotation can succeed,
// even with a structurally valid token.
func (m *SessionManager) Revoke(ctx context.Context, userID string) error {
	if err := m.repo.ClearRefreshToken(ctx, userID); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}
