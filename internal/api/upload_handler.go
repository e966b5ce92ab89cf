package api

import (
	"net/http"

	"viralpik/asset-service/internal/service"

	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	uploadService service.UploadService
	errs          *errorResponder
}

func NewUploadHandler(uploadService service.UploadService, errs *errorResponder) *UploadHandler {
	return &UploadHandler{uploadService: uploadService, errs: errs}
}

// --- DTOs ---

type UploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	FileSize    int64  `json:"fileSize"`
}

type DeleteUploadRequest struct {
	AssetKey     string `json:"assetKey"`
	ThumbnailKey string `json:"thumbnailKey"`
}

// RequestUpload godoc
// @Summary Get a signed upload URL
// @Description Validates the declared file and returns a one-hour signed PUT URL plus the asset and thumbnail keys.
// @Tags Uploads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UploadRequest true "File metadata"
// @Success 200 {object} service.UploadGrant
// @Failure 400 {object} gin.H "Missing filename or size"
// @Failure 401 {object} gin.H "Authentication required"
// @Failure 413 {object} gin.H "File too large"
// @Failure 415 {object} gin.H "Unsupported file type"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /upload [post]
func (h *UploadHandler) RequestUpload(c *gin.Context) {
	var req UploadRequest
	if !bindJSON(c, &req) {
		return
	}

	grant, err := h.uploadService.AuthorizeUpload(c.Request.Context(), service.UploadRequest{
		UserID:      getUserIDFromContext(c),
		Filename:    req.Filename,
		ContentType: req.ContentType,
		FileSize:    req.FileSize,
	})
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, grant)
}

// DeleteUpload godoc
// @Summary Delete an uploaded asset's objects
// @Tags Uploads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body DeleteUploadRequest true "Object keys"
// @Success 200 {object} gin.H "success"
// @Failure 400 {object} gin.H "Missing assetKey"
// @Failure 401 {object} gin.H "Authentication required"
// @Failure 403 {object} gin.H "Not the owner"
// @Failure 500 {object} gin.H "Internal Server Error"
// @Router /upload [delete]
func (h *UploadHandler) DeleteUpload(c *gin.Context) {
	var req DeleteUploadRequest
	if !bindJSON(c, &req) {
		return
	}

	err := h.uploadService.AuthorizeDelete(c.Request.Context(), service.DeleteRequest{
		UserID:       getUserIDFromContext(c),
		AssetKey:     req.AssetKey,
		ThumbnailKey: req.ThumbnailKey,
	})
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
