package memory

import (
	"context"
	"sync"
	"testing"

	"viralpik/asset-service/internal/domain"
	"viralpik/asset-service/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDownload_CapsAtLimitUnderConcurrency(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	const attempts = 50
	const limit = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.RecordDownload(ctx, &domain.DownloadRecord{UserID: "u1", AssetID: "a1"}, "2026-01-01", limit)
			assert.NoError(t, err)
			if res.Recorded {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, accepted)
	count, err := s.GetDailyDownloadCount(ctx, "u1", "2026-01-01")
	require.NoError(t, err)
	assert.Equal(t, limit, count)
	assert.Len(t, s.Downloads(), limit)
}

func TestRecordDownload_PackageAndAnonymousSkipCounter(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	res, err := s.RecordDownload(ctx, &domain.DownloadRecord{UserID: "u1", AssetID: "a1", IsPackage: true, PackageID: "p1"}, "d", 1)
	require.NoError(t, err)
	assert.True(t, res.Recorded)
	assert.Equal(t, 0, res.DailyCount)

	res, err = s.RecordDownload(ctx, &domain.DownloadRecord{AssetID: "a1"}, "d", 1)
	require.NoError(t, err)
	assert.True(t, res.Recorded)

	count, _ := s.GetDailyDownloadCount(ctx, "u1", "d")
	assert.Zero(t, count)
	assert.Len(t, s.Downloads(), 2)
}

func TestCounters_AreKeyedByDay(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	rec := &domain.DownloadRecord{UserID: "u1", AssetID: "a1"}

	res, _ := s.RecordDownload(ctx, rec, "2026-01-01", 1)
	require.True(t, res.Recorded)
	res, _ = s.RecordDownload(ctx, rec, "2026-01-01", 1)
	require.False(t, res.Recorded)
	res, _ = s.RecordDownload(ctx, rec, "2026-01-02", 1)
	require.True(t, res.Recorded)
}

func TestAssets_UpdateEnrichmentKeepsDescription(t *testing.T) {
	s := NewStore()
	repos := s.Repositories()
	ctx := context.Background()

	id, err := repos.Assets.Create(ctx, &domain.Asset{Title: "t", Description: "human text", FileURL: "u1"})
	require.NoError(t, err)

	score := 0.2
	applied, err := repos.Assets.UpdateEnrichment(ctx, id, domain.Enrichment{Caption: "generated", NSFWScore: &score})
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := repos.Assets.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "human text", got.Description)
	require.NotNil(t, got.NSFWScore)
	assert.InDelta(t, 0.2, *got.NSFWScore, 1e-9)

	_, err = repos.Assets.Create(ctx, &domain.Asset{Title: "dup", FileURL: "u1"})
	assert.ErrorIs(t, err, repository.ErrConflict)
}
