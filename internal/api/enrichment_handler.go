package api

import (
	"net/http"

	"viralpik/asset-service/internal/service"

	"github.com/gin-gonic/gin"
)

type EnrichmentHandler struct {
	enrichmentService service.EnrichmentService
	errs              *errorResponder
}

func NewEnrichmentHandler(enrichmentService service.EnrichmentService, errs *errorResponder) *EnrichmentHandler {
	return &EnrichmentHandler{enrichmentService: enrichmentService, errs: errs}
}

type EnrichRequest struct {
	AssetID  string `json:"assetId"`
	ImageURL string `json:"imageUrl"`
}

// Enrich godoc
// @Summary Enrich an asset with embedding, NSFW score and caption
// @Description Best effort. Reports which fields were produced, or that enrichment is not configured.
// @Tags Assets
// @Accept json
// @Produce json
// @Param request body EnrichRequest true "Asset to enrich"
// @Success 200 {object} gin.H
// @Failure 400 {object} gin.H "Missing assetId"
// @Failure 404 {object} gin.H "Asset not found"
// @Failure 429 {object} gin.H "Rate limited"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /enrich [post]
func (h *EnrichmentHandler) Enrich(c *gin.Context) {
	var req EnrichRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.enrichmentService.Enrich(c.Request.Context(), service.EnrichRequest{
		AssetID:  req.AssetID,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	if res.Skipped {
		c.JSON(http.StatusOK, gin.H{"ok": true, "message": "AI enrichment skipped: inference API not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"embedding":   res.Embedding,
		"nsfw_scored": res.NSFWScored,
		"captioned":   res.Captioned,
	})
}
