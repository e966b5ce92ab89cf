package api

import (
	"net/http"

	"viralpik/asset-service/internal/service"

	"github.com/gin-gonic/gin"
)

type DownloadHandler struct {
	downloadService service.DownloadService
	allowAnonymous  bool
	errs            *errorResponder
}

func NewDownloadHandler(downloadService service.DownloadService, allowAnonymous bool, errs *errorResponder) *DownloadHandler {
	return &DownloadHandler{downloadService: downloadService, allowAnonymous: allowAnonymous, errs: errs}
}

// --- DTOs ---

type DownloadRequest struct {
	AssetID   string `json:"assetId" binding:"required"`
	IsPackage bool   `json:"isPackage"`
	PackageID string `json:"packageId"`
}

// Download godoc
// @Summary Authorize and record a download
// @Description Checks the package price gate and the daily quota, records the download and returns a signed URL.
// @Tags Downloads
// @Accept json
// @Produce json
// @Param request body DownloadRequest true "Asset to download"
// @Success 200 {object} service.DownloadResult
// @Failure 400 {object} gin.H "Invalid request"
// @Failure 401 {object} gin.H "Authentication required"
// @Failure 402 {object} gin.H "Purchase required, with price"
// @Failure 404 {object} gin.H "Asset or package not found"
// @Failure 429 {object} gin.H "Daily limit reached"
// @Failure 500 {object} gin.H "Recording failed"
// @Router /download [post]
func (h *DownloadHandler) Download(c *gin.Context) {
	userID := getUserIDFromContext(c)

	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// A session problem takes precedence over a bad body
		if userID == "" && !h.allowAnonymous {
			h.errs.respond(c, service.ErrUnauthenticated)
			return
		}
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	res, err := h.downloadService.AuthorizeAndRecordDownload(c.Request.Context(), service.DownloadRequest{
		UserID:    userID,
		AssetID:   req.AssetID,
		IsPackage: req.IsPackage,
		PackageID: req.PackageID,
	})
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Status godoc
// @Summary Get today's download quota
// @Tags Downloads
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.DownloadStatus
// @Failure 401 {object} gin.H "Authentication required"
// @Router /download [get]
func (h *DownloadHandler) Status(c *gin.Context) {
	status, err := h.downloadService.CheckStatus(c.Request.Context(), getUserIDFromContext(c))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
