package api

import (
	"net/http"

	"viralpik/asset-service/internal/service"

	"github.com/gin-gonic/gin"
)

type AssetHandler struct {
	assetService service.AssetService
	errs         *errorResponder
}

func NewAssetHandler(assetService service.AssetService, errs *errorResponder) *AssetHandler {
	return &AssetHandler{assetService: assetService, errs: errs}
}

// --- DTOs ---

type RegisterAssetRequest struct {
	Title        string   `json:"title" binding:"required"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	AssetKey     string   `json:"assetKey" binding:"required"`
	ThumbnailKey string   `json:"thumbnailKey"`
	ContentType  string   `json:"contentType"`
	FileSize     int64    `json:"fileSize" binding:"gte=0"`
}

// RegisterAsset godoc
// @Summary Register an uploaded asset
// @Description Records an asset uploaded with a signed URL and starts enrichment in the background.
// @Tags Assets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RegisterAssetRequest true "Asset metadata"
// @Success 201 {object} domain.Asset
// @Failure 400 {object} gin.H "Invalid request"
// @Failure 401 {object} gin.H "Authentication required"
// @Failure 403 {object} gin.H "Key outside the caller's namespace"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /assets [post]
func (h *AssetHandler) RegisterAsset(c *gin.Context) {
	var req RegisterAssetRequest
	if !bindJSON(c, &req) {
		return
	}

	asset, err := h.assetService.Register(c.Request.Context(), service.RegisterAssetRequest{
		UserID:       getUserIDFromContext(c),
		Title:        req.Title,
		Description:  req.Description,
		Tags:         req.Tags,
		AssetKey:     req.AssetKey,
		ThumbnailKey: req.ThumbnailKey,
		ContentType:  req.ContentType,
		FileSize:     req.FileSize,
	})
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, asset)
}

// GetAsset godoc
// @Summary Get an asset by ID
// @Tags Assets
// @Produce json
// @Param id path string true "Asset ID"
// @Success 200 {object} domain.Asset
// @Failure 404 {object} gin.H "Asset not found"
// @Router /assets/{id} [get]
func (h *AssetHandler) GetAsset(c *gin.Context) {
	asset, err := h.assetService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, asset)
}
