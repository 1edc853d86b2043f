package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/streampulse/user-service/internal/core/domain"
)

const (
	collectionSubscriptions = "subscriptions"
	collectionVideos        = "videos"
)

// SubscriptionRepository serves the subscription-graph read models via
// aggregation pipelines over the users, subscriptions, and videos
// collections. Subscription documents hold {subscriber, channel} id pairs.
type SubscriptionRepository struct {
	users *mongo.Collection
}

func NewSubscriptionRepository(db *mongo.Database) *SubscriptionRepository {
	return &SubscriptionRepository{users: db.Collection(collectionUsers)}
}

type channelProfileRow struct {
	ID              primitive.ObjectID   `bson:"_id"`
	Username        string               `bson:"username"`
	FullName        string               `bson:"full_name"`
	Email           string               `bson:"email"`
	AvatarURL       string               `bson:"avatar_url"`
	CoverURL        string               `bson:"cover_url"`
	SubscriberCount int64                `bson:"subscriber_count"`
	SubscribedTo    int64                `bson:"subscribed_to_count"`
	Subscribers     []primitive.ObjectID `bson:"subscriber_ids"`
}

// Profile looks up one channel by username and joins its subscriber and
// subscribed-to edges, projecting counts plus the viewer's membership.
func (r *SubscriptionRepository) Profile(ctx context.Context, username, viewerID string) (*domain.ChannelProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"username": username}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         collectionSubscriptions,
			"localField":   "_id",
			"foreignField": "channel",
			"as":           "subscribers",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         collectionSubscriptions,
			"localField":   "_id",
			"foreignField": "subscriber",
			"as":           "subscribed_to",
		}}},
		{{Key: "$project", Value: bson.M{
			"username":            1,
			"full_name":           1,
			"email":               1,
			"avatar_url":          1,
			"cover_url":           1,
			"subscriber_count":    bson.M{"$size": "$subscribers"},
			"subscribed_to_count": bson.M{"$size": "$subscribed_to"},
			"subscriber_ids":      "$subscribers.subscriber",
		}}},
	}

	cur, err := r.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("channel profile aggregate: %w", err)
	}
	defer cur.Close(ctx)

	var rows []channelProfileRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("channel profile decode: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrChannelNotFound
	}

	row := rows[0]
	profile := &domain.ChannelProfile{
		ID:              row.ID.Hex(),
		Username:        row.Username,
		FullName:        row.FullName,
		Email:           row.Email,
		AvatarURL:       row.AvatarURL,
		CoverURL:        row.CoverURL,
		SubscriberCount: row.SubscriberCount,
		SubscribedTo:    row.SubscribedTo,
	}
	if viewer, err := primitive.ObjectIDFromHex(viewerID); err == nil {
		for _, sub := range row.Subscribers {
			if sub == viewer {
				profile.IsSubscribed = true
				break
			}
		}
	}
	return profile, nil
}

type watchedVideoRow struct {
	ID           primitive.ObjectID `bson:"_id"`
	Title        string             `bson:"title"`
	ThumbnailURL string             `bson:"thumbnail_url"`
	Duration     float64            `bson:"duration"`
	CreatedAt    primitive.DateTime `bson:"created_at"`
	Owner        struct {
		ID        primitive.ObjectID `bson:"_id"`
		Username  string             `bson:"username"`
		FullName  string             `bson:"full_name"`
		AvatarURL string             `bson:"avatar_url"`
	} `bson:"owner"`
}

// WatchHistory unwinds the user's watch_history ids into video documents
// with each owner projected down to its public fields.
func (r *SubscriptionRepository) WatchHistory(ctx context.Context, userID string) ([]*domain.WatchedVideo, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": oid}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         collectionVideos,
			"localField":   "watch_history",
			"foreignField": "_id",
			"as":           "videos",
			"pipeline": mongo.Pipeline{
				{{Key: "$lookup", Value: bson.M{
					"from":         collectionUsers,
					"localField":   "owner",
					"foreignField": "_id",
					"as":           "owner",
				}}},
				{{Key: "$unwind", Value: "$owner"}},
				{{Key: "$project", Value: bson.M{
					"title":            1,
					"thumbnail_url":    1,
					"duration":         1,
					"created_at":       1,
					"owner._id":        1,
					"owner.username":   1,
					"owner.full_name":  1,
					"owner.avatar_url": 1,
				}}},
			},
		}}},
		{{Key: "$unwind", Value: "$videos"}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$videos"}}},
	}

	cur, err := r.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("watch history aggregate: %w", err)
	}
	defer cur.Close(ctx)

	var rows []watchedVideoRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("watch history decode: %w", err)
	}

	history := make([]*domain.WatchedVideo, 0, len(rows))
	for _, row := range rows {
		history = append(history, &domain.WatchedVideo{
			ID:           row.ID.Hex(),
			Title:        row.Title,
			ThumbnailURL: row.ThumbnailURL,
			Duration:     row.Duration,
			CreatedAt:    row.CreatedAt.Time().UTC(),
			Owner: &domain.PublicUser{
				ID:        row.Owner.ID.Hex(),
				Username:  row.Owner.Username,
				FullName:  row.Owner.FullName,
				AvatarURL: row.Owner.AvatarURL,
			},
		})
	}
	return history, nil
}
