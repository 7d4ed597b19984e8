package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/cataloger/models"
)

// badRequest writes a 400 with an INVALID_INPUT error.
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, models.HarvestResponse{
		Success:  false,
		Products: models.ExtractionBatch{},
		Error: &models.ErrorDetail{
			Code:    models.ErrCodeInvalidInput,
			Message: msg,
		},
	})
}

// statusFor translates error codes to HTTP status codes.
func statusFor(code string) int {
	switch code {
	case models.ErrCodeTimeout, models.ErrCodeReadyTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeEmptyPage, models.ErrCodeCaptureFailed, models.ErrCodeSinkFailed:
		return http.StatusBadGateway // 502
	case models.ErrCodeBrowserLaunch:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeEmptyBatch:
		return http.StatusUnprocessableEntity // 422
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
