package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"viralpik/asset-service/internal/domain"
	"viralpik/asset-service/internal/repository"
)

type ProfileRepository struct {
	db DBTX
}

func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetTier(ctx context.Context, userID string) (domain.Tier, error) {
	query := `SELECT subscription_tier FROM profiles WHERE id = $1::uuid`

	var tier sql.NullString
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&tier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TierFree, repository.ErrNotFound
		}
		return domain.TierFree, fmt.Errorf("db error: %w", err)
	}
	return domain.ParseTier(tier.String), nil
}

func (r *ProfileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	query :=
		`INSERT INTO profiles (id, subscription_tier)
		 VALUES ($1::uuid, $2)
		 ON CONFLICT (id) DO UPDATE
		 SET subscription_tier = EXCLUDED.subscription_tier, updated_at = now()
		 RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, profile.ID, string(profile.SubscriptionTier)).
		Scan(&profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
