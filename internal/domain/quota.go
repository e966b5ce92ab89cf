package domain

import "time"

// TierLimits maps each tier to its daily download allowance.
// Unknown tiers are evaluated as free.
var TierLimits = map[Tier]int{
	TierFree:    1,
	TierPro:     10,
	TierPremium: 30,
}

// Quota is the outcome of evaluating a tier against the day's download count.
type Quota struct {
	Allowed   bool
	Limit     int
	Remaining int // may be negative when the count overshot the limit
}

// Limit returns the daily allowance for a tier, defaulting to the free tier.
func Limit(tier Tier) int {
	if limit, ok := TierLimits[tier]; ok {
		return limit
	}
	return TierLimits[TierFree]
}

// Evaluate applies the quota policy. It is pure and has no side effects.
func Evaluate(tier Tier, dailyCount int) Quota {
	limit := Limit(tier)
	return Quota{
		Allowed:   dailyCount < limit,
		Limit:     limit,
		Remaining: limit - dailyCount,
	}
}

// DisplayRemaining clamps Remaining at zero for responses.
func (q Quota) DisplayRemaining() int {
	if q.Remaining < 0 {
		return 0
	}
	return q.Remaining
}

// DayKey returns the daily counter key for t. Days roll over at UTC midnight.
func DayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
