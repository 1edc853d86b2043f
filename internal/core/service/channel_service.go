package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/streampulse/user-service/internal/core/domain"
	"github.com/streampulse/user-service/internal/core/ports"
)

// ProfileCache abstracts the short-TTL read cache in front of the channel
// profile aggregation (Redis).
type ProfileCache interface {
	Get(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, bool, error)
	Set(ctx context.Context, username, viewerID string, profile *domain.ChannelProfile) error
}

// ChannelService serves the subscription-graph read models: channel profile
// and watch history. Pure read side, no lifecycle state.
type ChannelService struct {
	repo   ports.ChannelRepository
	cache  ProfileCache
	logger zerolog.Logger
}

func NewChannelService(repo ports.ChannelRepository, cache ProfileCache, logger zerolog.Logger) *ChannelService {
	return &ChannelService{repo: repo, cache: cache, logger: logger}
}

// Profile returns the channel profile for username as seen by viewerID.
// Cache failures are logged and bypassed; the aggregation is authoritative.
func (s *ChannelService) Profile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, username, viewerID)
		if err != nil {
			s.logger.Warn().Err(err).Str("username", username).Msg("profile cache read failed")
		} else if ok {
			return cached, nil
		}
	}

	profile, err := s.repo.Profile(ctx, username, viewerID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, username, viewerID, profile); err != nil {
			s.logger.Warn().Err(err).Str("username", username).Msg("profile cache write failed")
		}
	}
	return profile, nil
}

func (s *ChannelService) WatchHistory(ctx context.Context, userID string) ([]*domain.WatchedVideo, error) {
	return s.repo.WatchHistory(ctx, userID)
}
