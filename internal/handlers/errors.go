package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/swap_exchange_app/internal/apperrors"
	"github.com/gin-gonic/gin"
)

// respondError maps a service error to its HTTP status and writes the
// {"error": ...} body. Unexpected errors are logged and hidden behind fallback.
func respondError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrUnsupportedAsset),
		errors.Is(err, apperrors.ErrInvalidAddress):
		logger.Warn("Rejected request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": publicMessage(err)})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": publicMessage(err)})
	case errors.Is(err, apperrors.ErrConflict):
		logger.Info("Conflicting request", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": publicMessage(err)})
	case errors.Is(err, apperrors.ErrPriceFeedUnavailable):
		logger.Warn("Price feed unavailable", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Price feed unavailable, please retry", "retryable": true})
	default:
		logger.Error(fallback, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// publicMessage returns the AppError message without the wrapped cause.
func publicMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
