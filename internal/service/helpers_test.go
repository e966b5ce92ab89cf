package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"viralpik/asset-service/internal/domain"
	"viralpik/asset-service/internal/repository"
	"viralpik/asset-service/internal/repository/memory"

	"github.com/stretchr/testify/require"
)

const (
	userA    = "11111111-1111-4111-8111-111111111111"
	userB    = "22222222-2222-4222-8222-222222222222"
	assetID  = "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa"
	asset2ID = "abababab-abab-4bab-8bab-abababababab"
	pkgID    = "cccccccc-cccc-4ccc-8ccc-cccccccccccc"
)

// fakeStorage signs predictable URLs and records deletions.
type fakeStorage struct {
	mu          sync.Mutex
	deleted     []string
	presignErr  error
	deleteErrOn map[string]error
}

func (f *fakeStorage) GeneratePresignedUploadURL(_ context.Context, key, contentType string, expires time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://signed.test/put/" + key + "?ct=" + contentType + "&exp=" + expires.String(), nil
}

func (f *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://signed.test/get/" + key, nil
}

func (f *fakeStorage) DeleteObject(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErrOn[key]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStorage) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

func (f *fakeStorage) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// fakeAI returns canned results; a non-nil error fails that task.
type fakeAI struct {
	embedding  []float32
	embedErr   error
	score      float64
	scoreErr   error
	caption    string
	captionErr error
	fetchErr   error
	noNSFW     bool

	fetches atomic.Int32
	embeds  atomic.Int32
	scores  atomic.Int32
}

func (f *fakeAI) Embed(context.Context, string) ([]float32, error) {
	f.embeds.Add(1)
	return f.embedding, f.embedErr
}

func (f *fakeAI) FetchImage(context.Context, string) ([]byte, error) {
	f.fetches.Add(1)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return []byte{0xff, 0xd8}, nil
}

func (f *fakeAI) ScoresNSFW() bool {
	return !f.noNSFW
}

func (f *fakeAI) ScoreNSFW(context.Context, []byte) (float64, error) {
	f.scores.Add(1)
	return f.score, f.scoreErr
}

func (f *fakeAI) Caption(context.Context, []byte) (string, error) {
	return f.caption, f.captionErr
}

// failingEntitlements overrides RecordDownload on top of a real store.
type failingEntitlements struct {
	repository.EntitlementStore
	result repository.RecordResult
	err    error
}

func (f failingEntitlements) RecordDownload(context.Context, *domain.DownloadRecord, string, int) (repository.RecordResult, error) {
	return f.result, f.err
}

var errBoom = errors.New("boom")

// failingEnrichmentWrites overrides UpdateEnrichment on top of a real asset repository.
type failingEnrichmentWrites struct {
	repository.AssetRepository
	err error
}

func (f failingEnrichmentWrites) UpdateEnrichment(context.Context, string, domain.Enrichment) (bool, error) {
	return false, f.err
}

func seedAsset(t *testing.T, repos *repository.Repositories, a domain.Asset) *domain.Asset {
	t.Helper()
	if a.CreatorID == "" {
		a.CreatorID = userB
	}
	if a.Title == "" {
		a.Title = "Neon Frame"
	}
	if a.FileURL == "" && a.FileKey != "" {
		a.FileURL = "https://cdn.test/" + a.FileKey
	}
	if a.FileURL == "" {
		a.FileURL = "https://cdn.test/legacy/" + a.ID
	}
	_, err := repos.Assets.Create(context.Background(), &a)
	require.NoError(t, err)
	return &a
}

func seedTier(t *testing.T, store *memory.Store, userID string, tier domain.Tier) {
	t.Helper()
	require.NoError(t, store.Upsert(context.Background(), &domain.Profile{ID: userID, SubscriptionTier: tier}))
}
