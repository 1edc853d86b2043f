package domain

import "time"

// ChannelProfile is the read model returned by the channel profile
// aggregation: a public user enriched with subscription-graph counts.
type ChannelProfile struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	AvatarURL       string `json:"avatar_url"`
	CoverURL        string `json:"cover_url,omitempty"`
	SubscriberCount int64  `json:"subscriber_count"`
	SubscribedTo    int64  `json:"subscribed_to_count"`
	IsSubscribed    bool   `json:"is_subscribed"`
}

// WatchedVideo is one entry of a user's watch history, with the owner
// already projected down to its public form.
type WatchedVideo struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	ThumbnailURL string      `json:"thumbnail_url"`
	Duration     float64     `json:"duration"`
	Owner        *PublicUser `json:"owner"`
	CreatedAt    time.Time   `json:"created_at"`
}
