package mongo

import (
	"context"
	"errors"
	"time"

	"viralpik/asset-service/internal/domain"
	"viralpik/asset-service/internal/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const assetCollectionName = "assets"

// mongoAssetRepository implements repository.AssetRepository
type mongoAssetRepository struct {
	collection *mongo.Collection
}

// NewMongoAssetRepository creates a new asset repository backed by MongoDB.
func NewMongoAssetRepository(db *mongo.Database) repository.AssetRepository {
	return &mongoAssetRepository{
		collection: db.Collection(assetCollectionName),
	}
}

// Create inserts a new asset. A second asset with the same fileUrl is
// rejected by the unique index and reported as ErrConflict.
func (r *mongoAssetRepository) Create(ctx context.Context, asset *domain.Asset) (string, error) {
	if asset.CreatorID == "" || asset.FileKey == "" || asset.FileURL == "" {
		return "", errors.New("asset requires creatorId, fileKey and fileUrl")
	}

	asset.ID = uuid.NewString()
	now := time.Now().UTC()
	asset.CreatedAt = now
	asset.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, asset); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", repository.ErrConflict
		}
		return "", err
	}
	return asset.ID, nil
}

func (r *mongoAssetRepository) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoAssetRepository) GetByFileURL(ctx context.Context, fileURL string) (*domain.Asset, error) {
	return r.findOne(ctx, bson.M{"fileUrl": fileURL})
}

func (r *mongoAssetRepository) findOne(ctx context.Context, filter bson.M) (*domain.Asset, error) {
	var asset domain.Asset
	err := r.collection.FindOne(ctx, filter).Decode(&asset)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &asset, nil
}

func (r *mongoAssetRepository) IncrementDownloadCount(ctx context.Context, id string) error {
	update := bson.M{"$inc": bson.M{"downloadCount": 1}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// UpdateEnrichment stores embedding and score unconditionally and the
// caption only where the description is still empty.
func (r *mongoAssetRepository) UpdateEnrichment(ctx context.Context, id string, e domain.Enrichment) (bool, error) {
	now := time.Now().UTC()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": enrichmentSet(e, now)})
	if err != nil {
		return false, err
	}
	if result.MatchedCount == 0 {
		return false, repository.ErrNotFound
	}

	if e.Caption == "" {
		return false, nil
	}
	captioned, err := r.collection.UpdateOne(ctx, emptyDescriptionFilter(id),
		bson.M{"$set": bson.M{"description": e.Caption, "updatedAt": now}})
	if err != nil {
		return false, err
	}
	return captioned.ModifiedCount > 0, nil
}

// enrichmentSet builds the $set document for the unconditional fields.
func enrichmentSet(e domain.Enrichment, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if len(e.Embedding) > 0 {
		set["embedding"] = e.Embedding
	}
	if e.NSFWScore != nil {
		set["nsfwScore"] = *e.NSFWScore
	}
	return set
}

func emptyDescriptionFilter(id string) bson.M {
	return bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"description": ""},
			bson.M{"description": bson.M{"$exists": false}},
		},
	}
}

// EnsureAssetIndexes creates necessary indexes for the assets collection.
func EnsureAssetIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// Download requests resolve assets by public URL
			Keys:    bson.D{{Key: "fileUrl", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "creatorId", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
