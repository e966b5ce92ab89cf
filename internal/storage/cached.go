package storage

import (
	"context"
	"time"

	"viralpik/asset-service/internal/metrics"

	"go.uber.org/zap"
)

// URLCache stores presigned URLs by object key.
type URLCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, url string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// cachedStorage reuses presigned download URLs while they are still well
// within their lifetime. Cache failures fall through to the wrapped storage.
type cachedStorage struct {
	FileStorage
	cache  URLCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedStorage wraps inner with a download URL cache. Entries live for
// ttl, which must stay below the presign expiry to be served.
func NewCachedStorage(inner FileStorage, cache URLCache, ttl time.Duration, logger *zap.Logger) FileStorage {
	return &cachedStorage{FileStorage: inner, cache: cache, ttl: ttl, logger: logger}
}

func downloadCacheKey(objectKey string) string {
	return "presign:get:" + objectKey
}

func (s *cachedStorage) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = DefaultPresignedURLExpiry
	}
	// An entry would outlive the URL it holds.
	if s.ttl <= 0 || s.ttl >= expires {
		return s.FileStorage.GeneratePresignedDownloadURL(ctx, objectKey, expires)
	}

	key := downloadCacheKey(objectKey)
	if url, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("url cache get failed", zap.String("key", objectKey), zap.Error(err))
	} else if ok {
		metrics.URLCacheLookups.WithLabelValues("hit").Inc()
		return url, nil
	}
	metrics.URLCacheLookups.WithLabelValues("miss").Inc()

	url, err := s.FileStorage.GeneratePresignedDownloadURL(ctx, objectKey, expires)
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, key, url, s.ttl); err != nil {
		s.logger.Warn("url cache set failed", zap.String("key", objectKey), zap.Error(err))
	}
	return url, nil
}

func (s *cachedStorage) DeleteObject(ctx context.Context, objectKey string) error {
	if err := s.FileStorage.DeleteObject(ctx, objectKey); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, downloadCacheKey(objectKey)); err != nil {
		s.logger.Warn("url cache invalidation failed", zap.String("key", objectKey), zap.Error(err))
	}
	return nil
}
