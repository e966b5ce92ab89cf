// Package mongo implements the repositories on MongoDB. It is the
// alternative backend for self-hosted deployments without Supabase.
package mongo

import (
	"context"
	"time"

	"viralpik/asset-service/internal/repository"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB using the provided URI
// and pings the primary before returning the client.
func ConnectDB(ctx context.Context, uri string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		// If ping fails, disconnect the client before returning the error
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}

	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(ctx context.Context, client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes every collection relies on.
// The unique (userId, day) index is what keeps the daily counter single-row.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := EnsureAssetIndexes(ctx, db.Collection(assetCollectionName)); err != nil {
		return err
	}
	if err := EnsureEntitlementIndexes(ctx, db); err != nil {
		return err
	}
	return nil
}

// NewRepositories wires every Mongo repository onto db. Closing the set
// disconnects client.
func NewRepositories(client *mongo.Client, db *mongo.Database) *repository.Repositories {
	return &repository.Repositories{
		Profiles:     NewMongoProfileRepository(db),
		Assets:       NewMongoAssetRepository(db),
		Packages:     NewMongoPackageRepository(db),
		Entitlements: NewMongoEntitlementStore(db),
		Close: func(ctx context.Context) error {
			return DisconnectDB(ctx, client)
		},
	}
}
