package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/swap_exchange_app/internal/core/ports/services"
	"github.com/SscSPs/swap_exchange_app/internal/dto"
	"github.com/SscSPs/swap_exchange_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

type settlementHandler struct {
	lifecycle portssvc.QuoteLifecycleSvc
}

func registerSettlementRoutes(rg *gin.RouterGroup, lifecycle portssvc.QuoteLifecycleSvc) {
	h := &settlementHandler{lifecycle: lifecycle}
	rg.POST("/quotes/:publicId/signal", h.applySignal)
}

// applySignal godoc
// @Summary Apply a settlement signal
// @Description Moves a quote along the settlement state machine. success requires txOutHash.
// @Tags settlement
// @Accept  json
// @Produce  json
// @Param   publicId path string true "Quote public id"
// @Param   signal body dto.SettlementSignalRequest true "Target status and hashes"
// @Success 200 {object} dto.QuoteResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Quote not found"
// @Failure 409 {object} map[string]string "Transition not allowed"
// @Failure 500 {object} map[string]string "Failed to apply signal"
// @Security ServiceToken
// @Router /settlement/quotes/{publicId}/signal [post]
func (h *settlementHandler) applySignal(c *gin.Context) {
	publicID := c.Param("publicId")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("public_id", publicID))

	var req dto.SettlementSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SettlementSignal", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	quote, err := h.lifecycle.ApplySettlementSignal(c.Request.Context(), publicID, req)
	if err != nil {
		respondError(c, logger, err, "Failed to apply signal")
		return
	}
	logger.Info("Settlement signal applied", slog.String("status", string(quote.Status)))
	c.JSON(http.StatusOK, dto.ToQuoteResponse(quote))
}
