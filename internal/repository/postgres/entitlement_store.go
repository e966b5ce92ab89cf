package postgres

import (
	"context"
	"fmt"

	"viralpik/asset-service/internal/domain"
	"viralpik/asset-service/internal/repository"
)

// EntitlementStore calls the quota stored functions. record_download does
// the conditional increment and the record insert in one statement.
type EntitlementStore struct {
	db DBTX
}

func NewEntitlementStore(db DBTX) *EntitlementStore {
	return &EntitlementStore{db: db}
}

func (s *EntitlementStore) GetDailyDownloadCount(ctx context.Context, userID, day string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT get_daily_download_count($1::uuid, $2::date)`, userID, day).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("get_daily_download_count: %w", err)
	}
	return count, nil
}

func (s *EntitlementStore) RecordDownload(ctx context.Context, rec *domain.DownloadRecord, day string, limit int) (repository.RecordResult, error) {
	query :=
		`SELECT recorded, daily_count
		 FROM record_download($1::uuid, $2::uuid, $3::uuid, $4, $5::uuid, $6::date, $7)`

	var res repository.RecordResult
	err := s.db.QueryRowContext(ctx, query,
		nullString(rec.ID), nullString(rec.UserID), rec.AssetID, rec.IsPackage, nullString(rec.PackageID), day, limit,
	).Scan(&res.Recorded, &res.DailyCount)
	if err != nil {
		return repository.RecordResult{}, fmt.Errorf("record_download: %w", err)
	}
	return res, nil
}
