package domain

import "time"

// DownloadRecord is appended once per accepted download request.
// UserID is empty for anonymous downloads, PackageID for single assets.
type DownloadRecord struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"userId,omitempty" json:"userId,omitempty"`
	AssetID   string    `bson:"assetId" json:"assetId"`
	IsPackage bool      `bson:"isPackage" json:"isPackage"`
	PackageID string    `bson:"packageId,omitempty" json:"packageId,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// CountsTowardQuota reports whether recording this download must also
// bump the user's daily counter.
func (r *DownloadRecord) CountsTowardQuota() bool {
	return r.UserID != "" && !r.IsPackage
}
