package domain

import (
	"fmt"
	"mime"
	"path"
	"strings"
	"time"
)

// MaxUploadSize is the largest accepted upload, inclusive (50 MiB).
const MaxUploadSize int64 = 50 * 1024 * 1024

// FallbackContentType is used when the client declares no content type.
const FallbackContentType = "application/octet-stream"

// Object store namespaces for originals and generated thumbnails.
const (
	AssetKeyPrefix     = "assets/"
	ThumbnailKeyPrefix = "thumbnails/"
	thumbnailSuffix    = "-thumb.jpg"
)

var (
	imageTypes = []string{
		"image/jpeg", "image/png", "image/gif", "image/webp", "image/svg+xml",
		"image/avif", "image/bmp", "image/tiff", "image/heic",
	}
	videoTypes = []string{
		"video/mp4", "video/webm", "video/quicktime", "video/x-msvideo",
		"video/x-matroska", "video/mpeg",
	}
	audioTypes = []string{
		"audio/mpeg", "audio/mp3", "audio/wav", "audio/x-wav", "audio/ogg",
		"audio/aac", "audio/flac", "audio/mp4", "audio/x-m4a", "audio/webm",
	}
	documentTypes = []string{
		"application/pdf", "text/plain", "application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"application/zip",
	}
	// Design tools rarely register a MIME type in browsers, so the generic
	// binary type belongs here.
	designTypes = []string{
		"image/vnd.adobe.photoshop", "application/x-photoshop", "application/photoshop",
		"application/psd", "application/postscript", "application/illustrator",
		"application/vnd.adobe.illustrator", "application/x-figma", "application/x-sketch",
		"application/x-indesign", FallbackContentType,
	}

	allowedContentTypes = buildAllowList(imageTypes, videoTypes, audioTypes, documentTypes, designTypes)
)

func buildAllowList(groups ...[]string) map[string]struct{} {
	m := make(map[string]struct{})
	for _, g := range groups {
		for _, t := range g {
			m[t] = struct{}{}
		}
	}
	return m
}

// EffectiveContentType returns the declared type or the generic fallback.
func EffectiveContentType(declared string) string {
	if strings.TrimSpace(declared) == "" {
		return FallbackContentType
	}
	return declared
}

// IsAllowedContentType checks a MIME type against the upload allow-list.
// Parameters such as charset are ignored and matching is case-insensitive.
func IsAllowedContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	_, ok := allowedContentTypes[mediaType]
	return ok
}

// FileExtension returns the extension of filename without the dot, or "bin".
func FileExtension(filename string) string {
	ext := strings.TrimPrefix(path.Ext(strings.TrimSpace(filename)), ".")
	if ext == "" {
		return "bin"
	}
	return strings.ToLower(ext)
}

// NewAssetKey builds assets/{uploader}/{unixMillis}-{suffix}.{ext}.
func NewAssetKey(uploaderID string, at time.Time, suffix, filename string) string {
	return fmt.Sprintf("%s%s/%d-%s.%s", AssetKeyPrefix, uploaderID, at.UnixMilli(), suffix, FileExtension(filename))
}

// ThumbnailKey derives the thumbnail key of an asset key:
// assets/u1/123-abcdef.png -> thumbnails/u1/123-abcdef-thumb.jpg.
func ThumbnailKey(assetKey string) string {
	key := assetKey
	if strings.HasPrefix(key, AssetKeyPrefix) {
		key = ThumbnailKeyPrefix + strings.TrimPrefix(key, AssetKeyPrefix)
	}
	if ext := path.Ext(key); ext != "" {
		key = strings.TrimSuffix(key, ext)
	}
	return key + thumbnailSuffix
}

// OwnsAssetKey reports whether key lives in the uploader's namespace.
func OwnsAssetKey(uploaderID, key string) bool {
	if uploaderID == "" {
		return false
	}
	return strings.HasPrefix(key, AssetKeyPrefix+uploaderID+"/")
}

// OwnsThumbnailKey reports whether key lives in the uploader's thumbnail namespace.
func OwnsThumbnailKey(uploaderID, key string) bool {
	if uploaderID == "" {
		return false
	}
	return strings.HasPrefix(key, ThumbnailKeyPrefix+uploaderID+"/")
}
