package mongo

import (
	"context"
	"errors"
	"time"

	"viralpik/asset-service/internal/domain"
	"viralpik/asset-service/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const profileCollectionName = "profiles"

// mongoProfileRepository implements repository.ProfileRepository using MongoDB.
type mongoProfileRepository struct {
	collection *mongo.Collection
}

// NewMongoProfileRepository creates a new profile repository backed by MongoDB.
func NewMongoProfileRepository(db *mongo.Database) repository.ProfileRepository {
	return &mongoProfileRepository{
		collection: db.Collection(profileCollectionName),
	}
}

// GetTier returns the stored subscription tier. A missing profile yields
// TierFree together with ErrNotFound.
func (r *mongoProfileRepository) GetTier(ctx context.Context, userID string) (domain.Tier, error) {
	var profile domain.Profile
	opts := options.FindOne().SetProjection(bson.M{"subscriptionTier": 1})

	err := r.collection.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.TierFree, repository.ErrNotFound
		}
		return domain.TierFree, err
	}
	return domain.ParseTier(string(profile.SubscriptionTier)), nil
}

// Upsert creates the profile or updates its tier.
func (r *mongoProfileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	now := time.Now().UTC()
	update := bson.M{
		"$set":         bson.M{"subscriptionTier": profile.SubscriptionTier, "updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var stored domain.Profile
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": profile.ID}, update, opts).Decode(&stored); err != nil {
		return err
	}
	profile.CreatedAt = stored.CreatedAt
	profile.UpdatedAt = stored.UpdatedAt
	return nil
}
