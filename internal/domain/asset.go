package domain

import (
	"strings"
	"time"
)

// Asset is a creative file offered on the marketplace. The file itself
// resides in the object store under FileKey.
type Asset struct {
	ID            string    `bson:"_id" json:"id"`
	CreatorID     string    `bson:"creatorId" json:"creatorId"`
	Title         string    `bson:"title" json:"title"`
	Description   string    `bson:"description" json:"description"`
	Tags          []string  `bson:"tags,omitempty" json:"tags,omitempty"`
	FileKey       string    `bson:"fileKey" json:"-"`
	FileURL       string    `bson:"fileUrl" json:"fileUrl"`
	ThumbnailKey  string    `bson:"thumbnailKey,omitempty" json:"-"`
	ThumbnailURL  string    `bson:"thumbnailUrl,omitempty" json:"thumbnailUrl,omitempty"`
	ContentType   string    `bson:"contentType" json:"contentType"`
	FileSize      int64     `bson:"fileSize" json:"fileSize"`
	DownloadCount int64     `bson:"downloadCount" json:"downloadCount"`
	Embedding     []float32 `bson:"embedding,omitempty" json:"-"`
	NSFWScore     *float64  `bson:"nsfwScore,omitempty" json:"nsfwScore,omitempty"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

// EmbeddingText is the text fed to the embedding model.
func (a *Asset) EmbeddingText() string {
	parts := []string{a.Title}
	if a.Description != "" {
		parts = append(parts, a.Description)
	}
	if len(a.Tags) > 0 {
		parts = append(parts, strings.Join(a.Tags, " "))
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// ImageURL is the image used for enrichment: the thumbnail when present.
func (a *Asset) ImageURL() string {
	if a.ThumbnailURL != "" {
		return a.ThumbnailURL
	}
	return a.FileURL
}

// Enrichment holds derived fields to persist. Nil/empty fields are skipped.
// Caption only fills a description that is currently empty.
type Enrichment struct {
	Embedding []float32
	NSFWScore *float64
	Caption   string
}

// IsEmpty reports whether there is nothing to persist.
func (e Enrichment) IsEmpty() bool {
	return len(e.Embedding) == 0 && e.NSFWScore == nil && e.Caption == ""
}

// Package is a creator-curated bundle of assets, optionally priced.
type Package struct {
	ID        string    `bson:"_id" json:"id"`
	CreatorID string    `bson:"creatorId" json:"creatorId"`
	Title     string    `bson:"title" json:"title"`
	Price     float64   `bson:"price" json:"price"` // zero means free
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// RequiresPurchase reports whether userID would need a purchase to download.
// Purchases are not tracked, so every non-owner of a priced package does.
func (p *Package) RequiresPurchase(userID string) bool {
	return p.Price > 0 && p.CreatorID != userID
}
