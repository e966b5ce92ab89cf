package repository

import (
	"context"

	"viralpik/asset-service/internal/domain"
)

// Error constants for repository layer
var (
	ErrNotFound = RepositoryError("not found")
	ErrConflict = RepositoryError("already exists")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// ProfileRepository reads subscription data from user profiles.
type ProfileRepository interface {
	// GetTier returns the user's tier, ErrNotFound when the profile is missing.
	GetTier(ctx context.Context, userID string) (domain.Tier, error)
	Upsert(ctx context.Context, profile *domain.Profile) error
}

// AssetRepository defines the interface for interacting with asset records.
type AssetRepository interface {
	Create(ctx context.Context, asset *domain.Asset) (string, error)
	GetByID(ctx context.Context, id string) (*domain.Asset, error)
	GetByFileURL(ctx context.Context, fileURL string) (*domain.Asset, error)
	// IncrementDownloadCount bumps the denormalized per-asset counter.
	IncrementDownloadCount(ctx context.Context, id string) error
	// UpdateEnrichment persists the non-empty fields of e. The caption is
	// written to the description only when the description is empty;
	// captionApplied reports whether that happened.
	UpdateEnrichment(ctx context.Context, id string, e domain.Enrichment) (captionApplied bool, err error)
}

// PackageRepository defines the interface for reading packages.
type PackageRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Package, error)
}

// RecordResult is returned by EntitlementStore.RecordDownload.
type RecordResult struct {
	// Recorded is false when the conditional counter increment lost
	// against the limit; nothing was written in that case.
	Recorded bool
	// DailyCount is the user's count for the day after the call.
	DailyCount int
}

// EntitlementStore owns the daily download counters and download records.
// Implementations must make RecordDownload a single atomic operation.
type EntitlementStore interface {
	GetDailyDownloadCount(ctx context.Context, userID, day string) (int, error)
	// RecordDownload appends rec. When rec counts toward the quota it also
	// increments the (user, day) counter, but only while the counter is
	// below limit.
	RecordDownload(ctx context.Context, rec *domain.DownloadRecord, day string, limit int) (RecordResult, error)
}

// Repositories bundles one backend's implementations.
type Repositories struct {
	Profiles     ProfileRepository
	Assets       AssetRepository
	Packages     PackageRepository
	Entitlements EntitlementStore
	// Close releases the backend's connections.
	Close func(ctx context.Context) error
}
