package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"viralpik/asset-service/internal/domain"
	"viralpik/asset-service/internal/repository"
)

type PackageRepository struct {
	db DBTX
}

func NewPackageRepository(db DBTX) *PackageRepository {
	return &PackageRepository{db: db}
}

func (r *PackageRepository) GetByID(ctx context.Context, id string) (*domain.Package, error) {
	query :=
		`SELECT id::text, creator_id::text, title, COALESCE(price, 0)::float8, created_at
		 FROM packages
		 WHERE id = $1::uuid`

	p := &domain.Package{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.CreatorID, &p.Title, &p.Price, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}
