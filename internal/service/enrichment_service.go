package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"viralpik/asset-service/internal/domain"
	"viralpik/asset-service/internal/metrics"
	"viralpik/asset-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InferenceClient is the subset of the inference API used for enrichment.
type InferenceClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	FetchImage(ctx context.Context, url string) ([]byte, error)
	// ScoresNSFW is false when no NSFW classifier is configured; the score
	// is then left unset rather than guessed.
	ScoresNSFW() bool
	ScoreNSFW(ctx context.Context, image []byte) (float64, error)
	Caption(ctx context.Context, image []byte) (string, error)
}

// EnrichRequest selects the asset to enrich. ImageURL overrides the
// asset's own image.
type EnrichRequest struct {
	AssetID  string
	ImageURL string
}

// EnrichmentResult reports which derived fields were produced.
type EnrichmentResult struct {
	Skipped    bool `json:"-"`
	Embedding  bool `json:"embedding"`
	NSFWScored bool `json:"nsfw_scored"`
	Captioned  bool `json:"captioned"`
}

// EnrichmentService derives search and safety metadata for assets.
// Inference failures never fail a request.
type EnrichmentService interface {
	Enrich(ctx context.Context, req EnrichRequest) (*EnrichmentResult, error)
}

type enrichmentService struct {
	assets repository.AssetRepository
	ai     InferenceClient // nil when the inference API is not configured
	logger *zap.Logger
}

// NewEnrichmentService creates the service. A nil ai turns every call into
// a skipped no-op.
func NewEnrichmentService(assets repository.AssetRepository, ai InferenceClient, logger *zap.Logger) EnrichmentService {
	return &enrichmentService{assets: assets, ai: ai, logger: logger}
}

// outcome is the result of one fan-out task.
type outcome[T any] struct {
	val T
	err error
	ran bool
}

func (s *enrichmentService) Enrich(ctx context.Context, req EnrichRequest) (*EnrichmentResult, error) {
	if req.AssetID == "" {
		return nil, invalid("assetId is required")
	}
	if uuid.Validate(req.AssetID) != nil {
		return nil, invalid("assetId must be a UUID")
	}

	asset, err := s.assets.GetByID(ctx, req.AssetID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load asset: %w", err)
	}
	imageURL := req.ImageURL
	if asset != nil && imageURL == "" {
		imageURL = asset.ImageURL()
	}
	if asset == nil && imageURL == "" {
		return nil, ErrNotFound
	}

	if s.ai == nil {
		return &EnrichmentResult{Skipped: true}, nil
	}

	var (
		wg        sync.WaitGroup
		embedding outcome[[]float32]
		nsfw      outcome[float64]
		caption   outcome[string]
	)

	if asset != nil {
		if text := asset.EmbeddingText(); text != "" {
			wg.Add(1)
			go func() {
				defer wg.Done()
				embedding.val, embedding.err = s.ai.Embed(ctx, text)
				embedding.ran = true
			}()
		}
	}

	if imageURL != "" {
		// Both image tasks share one download
		loadImage := sync.OnceValues(func() ([]byte, error) {
			return s.ai.FetchImage(ctx, imageURL)
		})
		if s.ai.ScoresNSFW() {
			wg.Add(1)
			go func() {
				defer wg.Done()
				nsfw.ran = true
				img, err := loadImage()
				if err != nil {
					nsfw.err = err
					return
				}
				nsfw.val, nsfw.err = s.ai.ScoreNSFW(ctx, img)
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			caption.ran = true
			img, err := loadImage()
			if err != nil {
				caption.err = err
				return
			}
			caption.val, caption.err = s.ai.Caption(ctx, img)
		}()
	}

	wg.Wait()

	var (
		update domain.Enrichment
		result EnrichmentResult
	)
	if s.settle("embedding", req.AssetID, embedding.ran, embedding.err) {
		update.Embedding = embedding.val
		result.Embedding = true
	}
	if s.settle("nsfw", req.AssetID, nsfw.ran, nsfw.err) {
		score := nsfw.val
		update.NSFWScore = &score
		result.NSFWScored = true
	}
	if s.settle("caption", req.AssetID, caption.ran, caption.err) {
		update.Caption = caption.val
		result.Captioned = true
	}

	if asset == nil || update.IsEmpty() {
		return &result, nil
	}

	applied, err := s.assets.UpdateEnrichment(ctx, asset.ID, update)
	if err != nil {
		metrics.EnrichmentTasks.WithLabelValues("persist", "failed").Inc()
		s.logger.Warn("failed to persist enrichment",
			zap.String("assetId", asset.ID),
			zap.Error(err))
		return &result, nil
	}
	metrics.EnrichmentTasks.WithLabelValues("persist", "ok").Inc()
	s.logger.Info("asset enriched",
		zap.String("assetId", asset.ID),
		zap.Bool("embedding", result.Embedding),
		zap.Bool("nsfwScored", result.NSFWScored),
		zap.Bool("captioned", result.Captioned),
		zap.Bool("descriptionFilled", applied))

	return &result, nil
}

// settle records a task's outcome and reports whether it produced a value.
func (s *enrichmentService) settle(task, assetID string, ran bool, err error) bool {
	if !ran {
		return false
	}
	if err != nil {
		metrics.EnrichmentTasks.WithLabelValues(task, "failed").Inc()
		s.logger.Warn("enrichment task failed",
			zap.String("task", task),
			zap.String("assetId", assetID),
			zap.Error(err))
		return false
	}
	metrics.EnrichmentTasks.WithLabelValues(task, "ok").Inc()
	return true
}
