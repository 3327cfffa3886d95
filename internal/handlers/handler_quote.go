package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/swap_exchange_app/internal/core/ports/services"
	"github.com/SscSPs/swap_exchange_app/internal/dto"
	"github.com/SscSPs/swap_exchange_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

// quoteHandler handles the public quote endpoints used by the swap UI.
type quoteHandler struct {
	engine    portssvc.QuoteEngineSvc
	lifecycle portssvc.QuoteLifecycleSvc
	query     portssvc.QuoteQuerySvc
}

// newQuoteHandler creates a new quoteHandler.
func newQuoteHandler(engine portssvc.QuoteEngineSvc, lifecycle portssvc.QuoteLifecycleSvc, query portssvc.QuoteQuerySvc) *quoteHandler {
	return &quoteHandler{
		engine:    engine,
		lifecycle: lifecycle,
		query:     query,
	}
}

// registerQuoteRoutes registers the public quote routes. createGuard runs
// before quote creation only.
func registerQuoteRoutes(rg *gin.RouterGroup, services *portssvc.ServiceContainer, createGuard gin.HandlerFunc, allowedOrigins []string) {
	h := newQuoteHandler(services.Quote, services.Lifecycle, services.Query)
	stream := newQuoteStreamHandler(services.Query, services.Notifier, allowedOrigins)

	quotes := rg.Group("/quotes")
	{
		quotes.POST("", createGuard, h.createQuote)
		quotes.GET("/:publicId", h.getQuote)
		quotes.PATCH("/:publicId/payout", h.attachPayout)
		quotes.POST("/:publicId/paid", h.reportPaid)
		quotes.GET("/:publicId/events", h.listEvents)
		quotes.GET("/:publicId/stream", stream.streamQuote)
	}
}

// createQuote godoc
// @Summary Create a rate-locked quote
// @Description Prices the pair from the cached feed, locks the rate and assigns the platform deposit address
// @Tags quotes
// @Accept  json
// @Produce  json
// @Param   quote body dto.CreateQuoteRequest true "Pair, chain and input amount"
// @Success 201 {object} dto.QuoteResponse
// @Failure 400 {object} map[string]string "Invalid input or unsupported asset"
// @Failure 429 {object} map[string]string "Rate limited"
// @Failure 503 {object} map[string]any "Price feed unavailable"
// @Failure 500 {object} map[string]string "Failed to create quote"
// @Router /quotes [post]
func (h *quoteHandler) createQuote(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateQuote", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	quote, err := h.engine.CreateQuote(c.Request.Context(), req)
	if err != nil {
		respondError(c, logger, err, "Failed to create quote")
		return
	}

	c.JSON(http.StatusCreated, dto.ToQuoteResponse(quote))
}

// getQuote godoc
// @Summary Get a quote
// @Description Returns the quote. Overdue open quotes are expired before they are returned.
// @Tags quotes
// @Produce  json
// @Param   publicId path string true "Quote public id"
// @Success 200 {object} dto.QuoteResponse
// @Failure 404 {object} map[string]string "Quote not found"
// @Failure 500 {object} map[string]string "Failed to retrieve quote"
// @Router /quotes/{publicId} [get]
func (h *quoteHandler) getQuote(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("public_id", c.Param("publicId")))

	quote, err := h.query.GetByPublicID(c.Request.Context(), c.Param("publicId"))
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve quote")
		return
	}
	c.JSON(http.StatusOK, dto.ToQuoteResponse(quote))
}

// attachPayout godoc
// @Summary Attach the payout address
// @Description Sets the destination address once. Repeating the call returns the quote unchanged.
// @Tags quotes
// @Accept  json
// @Produce  json
// @Param   publicId path string true "Quote public id"
// @Param   payout body dto.AttachPayoutRequest true "Payout address on the quote chain"
// @Success 200 {object} dto.QuoteResponse
// @Failure 400 {object} map[string]string "Invalid address"
// @Failure 404 {object} map[string]string "Quote not found"
// @Failure 409 {object} map[string]string "Quote expired or closed"
// @Failure 500 {object} map[string]string "Failed to attach payout address"
// @Router /quotes/{publicId}/payout [patch]
func (h *quoteHandler) attachPayout(c *gin.Context) {
	publicID := c.Param("publicId")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("public_id", publicID))

	var req dto.AttachPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for AttachPayout", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	quote, err := h.lifecycle.AttachPayout(c.Request.Context(), publicID, req.PayoutAddress)
	if err != nil {
		respondError(c, logger, err, "Failed to attach payout address")
		return
	}
	c.JSON(http.StatusOK, dto.ToQuoteResponse(quote))
}

// reportPaid godoc
// @Summary Report the user payment
// @Description Records the inbound transaction hash. An awaiting_payment quote moves to awaiting_review.
// @Tags quotes
// @Accept  json
// @Produce  json
// @Param   publicId path string true "Quote public id"
// @Param   paid body dto.UserPaidRequest true "Inbound transaction hash"
// @Success 200 {object} dto.QuoteResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Quote not found"
// @Failure 409 {object} map[string]string "Quote expired or closed"
// @Failure 500 {object} map[string]string "Failed to record payment"
// @Router /quotes/{publicId}/paid [post]
func (h *quoteHandler) reportPaid(c *gin.Context) {
	publicID := c.Param("publicId")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("public_id", publicID))

	var req dto.UserPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ReportUserPaid", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	quote, err := h.lifecycle.ReportUserPaid(c.Request.Context(), publicID, req.TxInHash)
	if err != nil {
		respondError(c, logger, err, "Failed to record payment")
		return
	}
	c.JSON(http.StatusOK, dto.ToQuoteResponse(quote))
}

// listEvents godoc
// @Summary List quote events
// @Description Returns the audit log of the quote, oldest first
// @Tags quotes
// @Produce  json
// @Param   publicId path string true "Quote public id"
// @Success 200 {array} dto.QuoteEventResponse
// @Failure 404 {object} map[string]string "Quote not found"
// @Failure 500 {object} map[string]string "Failed to list events"
// @Router /quotes/{publicId}/events [get]
func (h *quoteHandler) listEvents(c *gin.Context) {
	publicID := c.Param("publicId")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("public_id", publicID))

	events, err := h.query.ListEvents(c.Request.Context(), publicID)
	if err != nil {
		respondError(c, logger, err, "Failed to list events")
		return
	}
	c.JSON(http.StatusOK, dto.ToQuoteEventResponseList(events))
}
