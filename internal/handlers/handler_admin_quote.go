package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/swap_exchange_app/internal/core/ports/services"
	"github.com/SscSPs/swap_exchange_app/internal/dto"
	"github.com/SscSPs/swap_exchange_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// adminQuoteHandler handles operator review of quotes.
type adminQuoteHandler struct {
	lifecycle portssvc.QuoteLifecycleSvc
	query     portssvc.QuoteQuerySvc
}

// newAdminQuoteHandler creates a new adminQuoteHandler.
func newAdminQuoteHandler(lifecycle portssvc.QuoteLifecycleSvc, query portssvc.QuoteQuerySvc) *adminQuoteHandler {
	return &adminQuoteHandler{
		lifecycle: lifecycle,
		query:     query,
	}
}

// registerAdminQuoteRoutes registers routes for the admin console. The group
// is expected to carry the admin auth middleware.
func registerAdminQuoteRoutes(rg *gin.RouterGroup, lifecycle portssvc.QuoteLifecycleSvc, query portssvc.QuoteQuerySvc) {
	h := newAdminQuoteHandler(lifecycle, query)

	quotes := rg.Group("/quotes")
	{
		quotes.GET("", h.listQuotes)
		quotes.PATCH("", h.setStatus)
		quotes.POST("/sweep", h.sweepExpired)
	}
}

// listQuotes godoc
// @Summary List recent quotes
// @Description Returns quotes newest first. Use nextToken from the response to fetch the next page.
// @Tags admin
// @Produce  json
// @Param   limit query int false "Page size (default 50, max 200)"
// @Param   nextToken query string false "Pagination token"
// @Success 200 {object} dto.ListQuotesResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 500 {object} map[string]string "Failed to list quotes"
// @Security BearerAuth
// @Router /admin/quotes [get]
func (h *adminQuoteHandler) listQuotes(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListQuotesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query parameters for ListQuotes", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.query.ListRecent(c.Request.Context(), params)
	if err != nil {
		respondError(c, logger, err, "Failed to list quotes")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// setStatus godoc
// @Summary Override a quote status
// @Description Sets any status on any quote. Bypasses the settlement state machine and is recorded in the audit log.
// @Tags admin
// @Accept  json
// @Produce  json
// @Param   override body dto.AdminSetStatusRequest true "Target status and optional hashes"
// @Success 200 {object} dto.QuoteResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Quote not found"
// @Failure 500 {object} map[string]string "Failed to set status"
// @Security BearerAuth
// @Router /admin/quotes [patch]
func (h *adminQuoteHandler) setStatus(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.AdminSetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SetStatus", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		logger.Error("Actor not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	quote, err := h.lifecycle.SetStatus(c.Request.Context(), req, actor)
	if err != nil {
		respondError(c, logger.With(slog.String("public_id", req.PublicID)), err, "Failed to set status")
		return
	}
	c.JSON(http.StatusOK, dto.ToQuoteResponse(quote))
}

// sweepExpired godoc
// @Summary Expire overdue quotes
// @Description Runs the expiry sweep immediately and returns how many quotes were expired
// @Tags admin
// @Produce  json
// @Success 200 {object} dto.SweepResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 500 {object} map[string]string "Failed to sweep quotes"
// @Security BearerAuth
// @Router /admin/quotes/sweep [post]
func (h *adminQuoteHandler) sweepExpired(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	n, err := h.lifecycle.SweepExpired(c.Request.Context())
	if err != nil {
		respondError(c, logger, err, "Failed to sweep quotes")
		return
	}
	c.JSON(http.StatusOK, dto.SweepResponse{Expired: n})
}
