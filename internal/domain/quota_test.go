package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_AllowedMatchesLimit(t *testing.T) {
	for tier, limit := range TierLimits {
		for count := 0; count <= limit+2; count++ {
			q := Evaluate(tier, count)
			assert.Equal(t, count < limit, q.Allowed, "tier=%s count=%d", tier, count)
			assert.Equal(t, limit, q.Limit)
			assert.Equal(t, limit-count, q.Remaining)
		}
	}
}

func TestEvaluate_Limits(t *testing.T) {
	assert.Equal(t, 1, Evaluate(TierFree, 0).Limit)
	assert.Equal(t, 10, Evaluate(TierPro, 0).Limit)
	assert.Equal(t, 30, Evaluate(TierPremium, 0).Limit)
}

func TestEvaluate_UnknownTierIsFree(t *testing.T) {
	for _, tier := range []Tier{"", "gold", "PRO "} {
		for count := 0; count < 3; count++ {
			assert.Equal(t, Evaluate(TierFree, count), Evaluate(tier, count), "tier=%q", tier)
		}
	}
}

func TestEvaluate_NoOffByOne(t *testing.T) {
	q := Evaluate(TierPro, 10)
	require.False(t, q.Allowed)
	require.Equal(t, 0, q.Remaining)

	q = Evaluate(TierPro, 9)
	require.True(t, q.Allowed)
	require.Equal(t, 1, q.Remaining)
}

func TestQuota_DisplayRemainingClamps(t *testing.T) {
	q := Evaluate(TierFree, 4)
	assert.Equal(t, -3, q.Remaining)
	assert.Equal(t, 0, q.DisplayRemaining())
}

func TestParseTier(t *testing.T) {
	assert.Equal(t, TierPro, ParseTier("pro"))
	assert.Equal(t, TierPremium, ParseTier(" Premium "))
	assert.Equal(t, TierFree, ParseTier(""))
	assert.Equal(t, TierFree, ParseTier("enterprise"))
}

func TestDayKey_UsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	// 2026-03-02 05:00 in UTC+10 is still 2026-03-01 in UTC.
	at := time.Date(2026, 3, 2, 5, 0, 0, 0, loc)
	assert.Equal(t, "2026-03-01", DayKey(at))
}
