// Package memory is an in-process backend used by tests and local development.
// All state is lost on restart.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"viralpik/asset-service/internal/domain"
	"viralpik/asset-service/internal/repository"

	"github.com/google/uuid"
)

type counterKey struct {
	userID string
	day    string
}

// Store implements every repository interface behind a single mutex.
type Store struct {
	mu        sync.Mutex
	profiles  map[string]domain.Profile
	assets    map[string]*domain.Asset
	packages  map[string]domain.Package
	counters  map[counterKey]int
	downloads []domain.DownloadRecord
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		profiles: make(map[string]domain.Profile),
		assets:   make(map[string]*domain.Asset),
		packages: make(map[string]domain.Package),
		counters: make(map[counterKey]int),
	}
}

// Repositories exposes the store through the repository bundle.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Profiles:     s,
		Assets:       assetRepo{s},
		Packages:     packageRepo{s},
		Entitlements: s,
		Close:        func(context.Context) error { return nil },
	}
}

// --- Profiles ---

func (s *Store) GetTier(ctx context.Context, userID string) (domain.Tier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return domain.TierFree, repository.ErrNotFound
	}
	return domain.ParseTier(string(p.SubscriptionTier)), nil
}

func (s *Store) Upsert(ctx context.Context, profile *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	p := *profile
	if existing, ok := s.profiles[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.profiles[p.ID] = p
	return nil
}

// --- Packages ---

type packageRepo struct{ s *Store }

func (r packageRepo) GetByID(ctx context.Context, id string) (*domain.Package, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.packages[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

// PutPackage seeds a package.
func (s *Store) PutPackage(p domain.Package) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packages[p.ID] = p
}

// --- Assets ---

type assetRepo struct{ s *Store }

func (r assetRepo) Create(ctx context.Context, asset *domain.Asset) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.assets {
		if a.FileURL == asset.FileURL {
			return "", repository.ErrConflict
		}
	}
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	asset.CreatedAt, asset.UpdatedAt = now, now
	r.s.assets[asset.ID] = cloneAsset(asset)
	return asset.ID, nil
}

func (r assetRepo) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAsset(a), nil
}

func (r assetRepo) GetByFileURL(ctx context.Context, fileURL string) (*domain.Asset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.assets {
		if a.FileURL == fileURL {
			return cloneAsset(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r assetRepo) IncrementDownloadCount(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assets[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.DownloadCount++
	return nil
}

func (r assetRepo) UpdateEnrichment(ctx context.Context, id string, e domain.Enrichment) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assets[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if len(e.Embedding) > 0 {
		a.Embedding = slices.Clone(e.Embedding)
	}
	if e.NSFWScore != nil {
		score := *e.NSFWScore
		a.NSFWScore = &score
	}
	applied := false
	if e.Caption != "" && a.Description == "" {
		a.Description = e.Caption
		applied = true
	}
	a.UpdatedAt = time.Now().UTC()
	return applied, nil
}

func cloneAsset(a *domain.Asset) *domain.Asset {
	c := *a
	c.Tags = slices.Clone(a.Tags)
	c.Embedding = slices.Clone(a.Embedding)
	if a.NSFWScore != nil {
		score := *a.NSFWScore
		c.NSFWScore = &score
	}
	return &c
}

// --- Entitlements ---

func (s *Store) GetDailyDownloadCount(ctx context.Context, userID, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[counterKey{userID, day}], nil
}

func (s *Store) RecordDownload(ctx context.Context, rec *domain.DownloadRecord, day string, limit int) (repository.RecordResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := counterKey{rec.UserID, day}
	count := s.counters[key]
	if rec.CountsTowardQuota() {
		if count >= limit {
			return repository.RecordResult{Recorded: false, DailyCount: count}, nil
		}
		count++
		s.counters[key] = count
	}
	s.downloads = append(s.downloads, *rec)
	return repository.RecordResult{Recorded: true, DailyCount: count}, nil
}

// Downloads returns a copy of every recorded download.
func (s *Store) Downloads() []domain.DownloadRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.downloads)
}
