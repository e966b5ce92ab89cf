package mongo

import (
	"context"
	"testing"
	"time"

	"viralpik/asset-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func counterDoc(count int) bson.E {
	return bson.E{Key: "value", Value: bson.D{
		{Key: "_id", Value: "c-1"},
		{Key: "userId", Value: "u-1"},
		{Key: "day", Value: "2026-10-15"},
		{Key: "count", Value: count},
	}}
}

func newDownloadRecord() *domain.DownloadRecord {
	return &domain.DownloadRecord{
		ID:        "d-1",
		UserID:    "u-1",
		AssetID:   "a-1",
		CreatedAt: time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC),
	}
}

func TestRecordDownload(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("records below the limit", func(mt *mtest.T) {
		store := NewMongoEntitlementStore(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(counterDoc(1)),
			mtest.CreateSuccessResponse(),
		)

		res, err := store.RecordDownload(context.Background(), newDownloadRecord(), "2026-10-15", 1)
		require.NoError(mt, err)
		assert.True(mt, res.Recorded)
		assert.Equal(mt, 1, res.DailyCount)
	})

	mt.Run("insert failure releases the slot", func(mt *mtest.T) {
		store := NewMongoEntitlementStore(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(counterDoc(1)),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "insert rejected"}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		_, err := store.RecordDownload(context.Background(), newDownloadRecord(), "2026-10-15", 1)
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "insert download")
		assert.NotContains(mt, err.Error(), "release daily slot")
	})

	mt.Run("failed release is reported with the insert error", func(mt *mtest.T) {
		store := NewMongoEntitlementStore(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(counterDoc(1)),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "insert rejected"}),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "update rejected"}),
		)

		_, err := store.RecordDownload(context.Background(), newDownloadRecord(), "2026-10-15", 1)
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "insert download")
		assert.Contains(mt, err.Error(), "release daily slot")
		assert.Contains(mt, err.Error(), "update rejected")
	})
}
