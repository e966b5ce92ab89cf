package api

import (
	"errors"
	"net/http"

	"viralpik/asset-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// errorResponder maps service errors to HTTP responses in one place.
type errorResponder struct {
	// exposeDetails adds the internal error text to 500 bodies outside production.
	exposeDetails bool
	logger        *zap.Logger
}

func (r *errorResponder) respond(c *gin.Context, err error) {
	var (
		quotaErr   *service.QuotaExceededError
		paymentErr *service.PaymentRequiredError
		invalidErr *service.InvalidRequestError
	)

	switch {
	case errors.As(err, &quotaErr):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":      service.ErrQuotaExceeded.Error(),
			"dailyCount": quotaErr.DailyCount,
			"limit":      quotaErr.Limit,
			"tier":       quotaErr.Tier,
			"message":    quotaErr.Message(),
		})
	case errors.As(err, &paymentErr):
		c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
			"error": service.ErrPaymentRequired.Error(),
			"price": paymentErr.Price,
		})
	case errors.As(err, &invalidErr):
		abortWithError(c, http.StatusBadRequest, invalidErr.Reason)
	case errors.Is(err, service.ErrUnauthenticated):
		abortWithError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrInvalidRequest):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrPayloadTooLarge):
		abortWithError(c, http.StatusRequestEntityTooLarge, "file too large (max 50MB)")
	case errors.Is(err, service.ErrUnsupportedType):
		abortWithError(c, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, service.ErrRecordingFailed):
		r.internal(c, service.ErrRecordingFailed.Error(), err)
	default:
		r.internal(c, "Internal server error", err)
	}
}

func (r *errorResponder) internal(c *gin.Context, message string, err error) {
	r.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	body := gin.H{"error": message}
	if r.exposeDetails {
		body["details"] = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, body)
}

// bindJSON decodes the body into obj and answers 400 on failure.
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
