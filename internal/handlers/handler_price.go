package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	portssvc "github.com/SscSPs/swap_exchange_app/internal/core/ports/services"
	"github.com/SscSPs/swap_exchange_app/internal/dto"
	"github.com/SscSPs/swap_exchange_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// maxPriceIDs caps the ids accepted by one GET /prices call.
const maxPriceIDs = 50

type priceHandler struct {
	priceService portssvc.PriceSvc
}

func newPriceHandler(ps portssvc.PriceSvc) *priceHandler {
	return &priceHandler{priceService: ps}
}

func registerPriceRoutes(rg *gin.RouterGroup, ps portssvc.PriceSvc, guard gin.HandlerFunc) {
	h := newPriceHandler(ps)
	rg.GET("/prices", guard, h.getPrices)
}

// getPrices godoc
// @Summary Get USD prices
// @Description Returns cached USD prices for the given price-feed ids. Unknown ids are omitted.
// @Tags prices
// @Produce  json
// @Param   ids query string true "Comma separated price-feed ids, e.g. bitcoin,tether"
// @Success 200 {object} dto.PricesResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 503 {object} map[string]any "Price feed unavailable"
// @Router /prices [get]
func (h *priceHandler) getPrices(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.GetPricesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query parameters for GetPrices", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	var ids []string
	for _, id := range strings.Split(params.IDs, ",") {
		if id = strings.ToLower(strings.TrimSpace(id)); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 || len(ids) > maxPriceIDs {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids must list between 1 and 50 price ids"})
		return
	}

	prices, err := h.priceService.GetPrices(c.Request.Context(), ids)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve prices")
		return
	}
	c.JSON(http.StatusOK, dto.PricesResponse{USD: prices})
}
