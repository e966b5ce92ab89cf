package domain

import (
	"strings"
	"time"
)

// Tier is the subscription level that controls a user's daily download allowance.
type Tier string

// Define constants for tiers
const (
	TierFree    Tier = "free"
	TierPro     Tier = "pro"
	TierPremium Tier = "premium"
)

// ParseTier normalizes a stored tier value. Missing or unknown values are free.
func ParseTier(s string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case TierPro:
		return TierPro
	case TierPremium:
		return TierPremium
	default:
		return TierFree
	}
}

// Profile is the subset of a user profile this service reads.
// Identity itself lives in the hosted auth service; ID is its user id.
type Profile struct {
	ID               string    `bson:"_id" json:"id"`
	SubscriptionTier Tier      `bson:"subscriptionTier" json:"subscriptionTier"`
	CreatedAt        time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time `bson:"updatedAt" json:"updatedAt"`
}
