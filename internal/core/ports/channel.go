package ports

import (
	"context"

	"github.com/streampulse/user-service/internal/core/domain"
)

// ChannelRepository is the read-side boundary over the subscription graph
// and watch history. Implementations run aggregation queries only; there is
// no lifecycle state behind this port.
type ChannelRepository interface {
	// Profile returns the channel profile for username as seen by viewerID
	// (drives the is_subscribed flag). Absent channel yields
	// domain.ErrChannelNotFound.
	Profile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]*domain.WatchedVideo, error)
}

type ChannelService interface {
	Profile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]*domain.WatchedVideo, error)
}
