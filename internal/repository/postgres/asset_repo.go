package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"viralpik/asset-service/internal/domain"
	"viralpik/asset-service/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const assetColumns = `id::text, creator_id::text, title, description, to_jsonb(tags)::text,
	file_key, file_url, thumbnail_key, thumbnail_url, content_type, file_size,
	download_count, nsfw_score, created_at, updated_at`

type AssetRepository struct {
	db DBTX
}

func NewAssetRepository(db DBTX) *AssetRepository {
	return &AssetRepository{db: db}
}

func (r *AssetRepository) Create(ctx context.Context, asset *domain.Asset) (string, error) {
	tags, err := json.Marshal(nonNilTags(asset.Tags))
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}

	query :=
		`INSERT INTO assets (creator_id, title, description, tags, file_key, file_url,
		                     thumbnail_key, thumbnail_url, content_type, file_size)
		 VALUES ($1::uuid, $2, $3, ARRAY(SELECT jsonb_array_elements_text($4::jsonb)), $5, $6, $7, $8, $9, $10)
		 RETURNING id::text, created_at, updated_at`

	err = r.db.QueryRowContext(ctx, query,
		asset.CreatorID, asset.Title, asset.Description, string(tags), asset.FileKey, asset.FileURL,
		asset.ThumbnailKey, asset.ThumbnailURL, asset.ContentType, asset.FileSize,
	).Scan(&asset.ID, &asset.CreatedAt, &asset.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", repository.ErrConflict
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return asset.ID, nil
}

func (r *AssetRepository) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	return r.getOne(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = $1::uuid`, id)
}

func (r *AssetRepository) GetByFileURL(ctx context.Context, fileURL string) (*domain.Asset, error) {
	return r.getOne(ctx, `SELECT `+assetColumns+` FROM assets WHERE file_url = $1`, fileURL)
}

func (r *AssetRepository) getOne(ctx context.Context, query string, arg any) (*domain.Asset, error) {
	var (
		a     domain.Asset
		tags  string
		score sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.CreatorID, &a.Title, &a.Description, &tags,
		&a.FileKey, &a.FileURL, &a.ThumbnailKey, &a.ThumbnailURL, &a.ContentType, &a.FileSize,
		&a.DownloadCount, &score, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &a.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	if score.Valid {
		a.NSFWScore = &score.Float64
	}
	return &a, nil
}

func (r *AssetRepository) IncrementDownloadCount(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `SELECT increment_download_count($1::uuid)`, id); err != nil {
		return fmt.Errorf("increment_download_count: %w", err)
	}
	return nil
}

func (r *AssetRepository) UpdateEnrichment(ctx context.Context, id string, e domain.Enrichment) (bool, error) {
	query :=
		`WITH prev AS (
		     SELECT id, description FROM assets WHERE id = $1::uuid FOR UPDATE
		 )
		 UPDATE assets a
		 SET embedding   = COALESCE($2::vector, a.embedding),
		     nsfw_score  = COALESCE($3::float8, a.nsfw_score),
		     description = CASE WHEN $4::text <> '' AND prev.description = '' THEN $4::text ELSE a.description END,
		     updated_at  = now()
		 FROM prev
		 WHERE a.id = prev.id
		 RETURNING ($4::text <> '' AND prev.description = '')`

	var score sql.NullFloat64
	if e.NSFWScore != nil {
		score = sql.NullFloat64{Float64: *e.NSFWScore, Valid: true}
	}

	var applied bool
	err := r.db.QueryRowContext(ctx, query, id, nullString(vectorLiteral(e.Embedding)), score, e.Caption).Scan(&applied)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, repository.ErrNotFound
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return applied, nil
}

// vectorLiteral renders a pgvector input value, "" for no vector.
func vectorLiteral(v []float32) string {
	if len(v) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
