package postgres

import (
	"context"
	"testing"
	"time"

	"viralpik/asset-service/internal/domain"
	"viralpik/asset-service/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestGetTier(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProfileRepository(db)

	mock.ExpectQuery(`SELECT subscription_tier FROM profiles WHERE id = \$1::uuid`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"subscription_tier"}).AddRow("premium"))

	tier, err := repo.GetTier(context.Background(), "u-1")
	require.NoError(t, err)
	require.Equal(t, domain.TierPremium, tier)
}

func TestGetTier_UnknownValueIsFree(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProfileRepository(db)

	mock.ExpectQuery(`FROM profiles`).
		WillReturnRows(sqlmock.NewRows([]string{"subscription_tier"}).AddRow(nil))

	tier, err := repo.GetTier(context.Background(), "u-1")
	require.NoError(t, err)
	require.Equal(t, domain.TierFree, tier)
}

func TestGetTier_MissingProfile(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProfileRepository(db)

	mock.ExpectQuery(`FROM profiles`).WillReturnRows(sqlmock.NewRows([]string{"subscription_tier"}))

	tier, err := repo.GetTier(context.Background(), "u-1")
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.Equal(t, domain.TierFree, tier)
}

func TestUpsertProfile(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProfileRepository(db)
	now := time.Now()

	mock.ExpectQuery(`(?s)INSERT INTO profiles.*ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("u-1", "pro").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	p := &domain.Profile{ID: "u-1", SubscriptionTier: domain.TierPro}
	require.NoError(t, repo.Upsert(context.Background(), p))
	require.Equal(t, now, p.UpdatedAt)
}

func TestPackageGetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPackageRepository(db)
	now := time.Now()

	mock.ExpectQuery(`(?s)SELECT id::text, creator_id::text, title, COALESCE\(price, 0\)::float8, created_at\s+FROM packages`).
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "creator_id", "title", "price", "created_at"}).
			AddRow("p-1", "owner", "Starter pack", 10.0, now))

	p, err := repo.GetByID(context.Background(), "p-1")
	require.NoError(t, err)
	require.Equal(t, 10.0, p.Price)
	require.Equal(t, "owner", p.CreatorID)

	mock.ExpectQuery(`FROM packages`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = repo.GetByID(context.Background(), "p-2")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
