package api

import (
	"net/http"

	"viralpik/asset-service/internal/metrics"
	"viralpik/asset-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouteConfig carries the request-level settings the routes depend on.
type RouteConfig struct {
	JWTSecret      string
	CookieName     string
	AllowAnonymous bool
	ExposeDetails  bool
}

// Services groups the business services exposed over HTTP.
type Services struct {
	Downloads  service.DownloadService
	Uploads    service.UploadService
	Enrichment service.EnrichmentService
	Assets     service.AssetService
}

func SetupRoutes(
	router *gin.Engine,
	cfg RouteConfig,
	services Services,
	enrichLimiter *IPRateLimiter,
	logger *zap.Logger,
) {
	errs := &errorResponder{exposeDetails: cfg.ExposeDetails, logger: logger}

	downloadHandler := NewDownloadHandler(services.Downloads, cfg.AllowAnonymous, errs)
	uploadHandler := NewUploadHandler(services.Uploads, errs)
	enrichmentHandler := NewEnrichmentHandler(services.Enrichment, errs)
	assetHandler := NewAssetHandler(services.Assets, errs)

	authMiddleware := AuthMiddleware(cfg.JWTSecret, cfg.CookieName)
	optionalAuth := OptionalAuthMiddleware(cfg.JWTSecret, cfg.CookieName)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	apiV1 := router.Group("/api/v1")

	// --- Download Routes ---
	apiV1.POST("/download", optionalAuth, downloadHandler.Download)
	apiV1.GET("/download", authMiddleware, downloadHandler.Status)

	// --- Upload Routes ---
	uploadGroup := apiV1.Group("/upload")
	uploadGroup.Use(authMiddleware)
	{
		uploadGroup.POST("", uploadHandler.RequestUpload)
		uploadGroup.DELETE("", uploadHandler.DeleteUpload)
	}

	// Enrichment is unauthenticated, so it is rate limited per client IP.
	enrich := []gin.HandlerFunc{}
	if enrichLimiter != nil {
		enrich = append(enrich, enrichLimiter.Handler())
	}
	enrich = append(enrich, enrichmentHandler.Enrich)
	apiV1.POST("/enrich", enrich...)

	// --- Asset Routes ---
	assetGroup := apiV1.Group("/assets")
	{
		assetGroup.POST("", authMiddleware, assetHandler.RegisterAsset)
		assetGroup.GET("/:id", assetHandler.GetAsset)
	}
}
