package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"viralpik/asset-service/internal/domain"
	"viralpik/asset-service/internal/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	downloadCollectionName     = "downloads"
	dailyCounterCollectionName = "daily_download_counts"
)

// dailyCounter is one row per (userId, day).
type dailyCounter struct {
	ID     string `bson:"_id"`
	UserID string `bson:"userId"`
	Day    string `bson:"day"`
	Count  int    `bson:"count"`
}

// mongoEntitlementStore keeps the daily counters and the download log.
// The counter is gated with a conditional $inc so concurrent requests can
// never push it past the limit.
type mongoEntitlementStore struct {
	downloads *mongo.Collection
	counters  *mongo.Collection
}

// NewMongoEntitlementStore creates a new entitlement store backed by MongoDB.
func NewMongoEntitlementStore(db *mongo.Database) repository.EntitlementStore {
	return &mongoEntitlementStore{
		downloads: db.Collection(downloadCollectionName),
		counters:  db.Collection(dailyCounterCollectionName),
	}
}

func (s *mongoEntitlementStore) GetDailyDownloadCount(ctx context.Context, userID, day string) (int, error) {
	var counter dailyCounter
	err := s.counters.FindOne(ctx, bson.M{"userId": userID, "day": day}).Decode(&counter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, err
	}
	return counter.Count, nil
}

func (s *mongoEntitlementStore) RecordDownload(ctx context.Context, rec *domain.DownloadRecord, day string, limit int) (repository.RecordResult, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	if !rec.CountsTowardQuota() {
		if _, err := s.downloads.InsertOne(ctx, rec); err != nil {
			return repository.RecordResult{}, fmt.Errorf("insert download: %w", err)
		}
		count := 0
		if rec.UserID != "" {
			var err error
			if count, err = s.GetDailyDownloadCount(ctx, rec.UserID, day); err != nil {
				return repository.RecordResult{}, err
			}
		}
		return repository.RecordResult{Recorded: true, DailyCount: count}, nil
	}

	count, ok, err := s.incrementBelow(ctx, rec.UserID, day, limit)
	if err != nil {
		return repository.RecordResult{}, err
	}
	if !ok {
		return repository.RecordResult{Recorded: false, DailyCount: count}, nil
	}

	if _, err := s.downloads.InsertOne(ctx, rec); err != nil {
		insertErr := fmt.Errorf("insert download: %w", err)
		// Give the slot back; the download was never logged.
		if undoErr := s.releaseSlot(ctx, rec.UserID, day); undoErr != nil {
			return repository.RecordResult{}, errors.Join(insertErr, undoErr)
		}
		return repository.RecordResult{}, insertErr
	}
	return repository.RecordResult{Recorded: true, DailyCount: count}, nil
}

// releaseSlot undoes a counter increment, even after ctx is cancelled.
func (s *mongoEntitlementStore) releaseSlot(ctx context.Context, userID, day string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	_, err := s.counters.UpdateOne(ctx, bson.M{"userId": userID, "day": day}, bson.M{"$inc": bson.M{"count": -1}})
	if err != nil {
		return fmt.Errorf("release daily slot: %w", err)
	}
	return nil
}

// incrementBelow bumps the (userID, day) counter only while it is below
// limit. The upsert races with other first-of-day requests on the unique
// index; the loser retries against the row that now exists.
func (s *mongoEntitlementStore) incrementBelow(ctx context.Context, userID, day string, limit int) (int, bool, error) {
	update := bson.M{
		"$inc":         bson.M{"count": 1},
		"$setOnInsert": bson.M{"_id": uuid.NewString()},
	}
	after := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var counter dailyCounter
	err := s.counters.FindOneAndUpdate(ctx, dailyCounterFilter(userID, day, limit), update, after.SetUpsert(true)).Decode(&counter)
	if mongo.IsDuplicateKeyError(err) {
		retry := options.FindOneAndUpdate().SetReturnDocument(options.After)
		err = s.counters.FindOneAndUpdate(ctx, dailyCounterFilter(userID, day, limit),
			bson.M{"$inc": bson.M{"count": 1}}, retry).Decode(&counter)
	}
	if err == nil {
		return counter.Count, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, fmt.Errorf("increment daily counter: %w", err)
	}

	current, err := s.GetDailyDownloadCount(ctx, userID, day)
	if err != nil {
		return 0, false, err
	}
	return current, false, nil
}

func dailyCounterFilter(userID, day string, limit int) bson.M {
	return bson.M{
		"userId": userID,
		"day":    day,
		"count":  bson.M{"$lt": limit},
	}
}

// EnsureEntitlementIndexes creates the counter and download log indexes.
func EnsureEntitlementIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(dailyCounterCollectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "day", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(downloadCollectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "assetId", Value: 1}},
			Options: options.Index(),
		},
	})
	return err
}
