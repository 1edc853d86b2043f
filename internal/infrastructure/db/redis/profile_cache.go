package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/streampulse/user-service/internal/api/metrics"
	"github.com/streampulse/user-service/internal/core/domain"
)

const profileTTL = 30 * time.Second

// ProfileCache is a short-TTL read cache for channel profile aggregations.
// Key format: chanprofile:<username>:<viewer_id>. Entries expire rather
// than being invalidated; the TTL bounds staleness.
type ProfileCache struct {
	client *redis.Client
}

func NewProfileCache(client *redis.Client) *ProfileCache {
	return &ProfileCache{client: client}
}

// Get returns the cached profile and whether it was present.
func (p *ProfileCache) Get(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, bool, error) {
	raw, err := p.client.Get(ctx, p.key(username, viewerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.ProfileCacheTotal.WithLabelValues("miss").Inc()
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("profile cache get: %w", err)
	}

	var profile domain.ChannelProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, false, fmt.Errorf("profile cache decode: %w", err)
	}
	metrics.ProfileCacheTotal.WithLabelValues("hit").Inc()
	return &profile, true, nil
}

// Set stores the profile for profileTTL.
func (p *ProfileCache) Set(ctx context.Context, username, viewerID string, profile *domain.ChannelProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("profile cache encode: %w", err)
	}
	return p.client.Set(ctx, p.key(username, viewerID), raw, profileTTL).Err()
}

func (p *ProfileCache) key(username, viewerID string) string {
	return fmt.Sprintf("chanprofile:%s:%s", username, viewerID)
}
