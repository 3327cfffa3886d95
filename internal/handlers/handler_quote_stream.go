package handlers

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SscSPs/swap_exchange_app/internal/core/domain"
	portssvc "github.com/SscSPs/swap_exchange_app/internal/core/ports/services"
	"github.com/SscSPs/swap_exchange_app/internal/dto"
	"github.com/SscSPs/swap_exchange_app/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Stream timeouts
const (
	streamWriteTimeout = 10 * time.Second
	streamPongWait     = 60 * time.Second
	streamPingInterval = 30 * time.Second
	streamReadLimit    = 512
	streamBuffer       = 4
)

// quoteStreamHandler pushes quote changes over a websocket.
type quoteStreamHandler struct {
	query    portssvc.QuoteQuerySvc
	notifier portssvc.QuoteNotifier
	upgrader websocket.Upgrader
}

func newQuoteStreamHandler(query portssvc.QuoteQuerySvc, notifier portssvc.QuoteNotifier, allowedOrigins []string) *quoteStreamHandler {
	return &quoteStreamHandler{
		query:    query,
		notifier: notifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker accepts requests without an Origin header (non-browser clients),
// any origin when the list contains "*", and otherwise only the listed origins.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	wildcard := false
	for _, o := range allowed {
		if o == "*" {
			wildcard = true
		}
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || wildcard {
			return true
		}
		if _, ok := set[origin]; ok {
			return true
		}
		// Same-host requests are always allowed.
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// streamQuote godoc
// @Summary Stream quote changes
// @Description Upgrades to a websocket. Sends the current quote, then every persisted change. Pings every 30s.
// @Tags quotes
// @Param   publicId path string true "Quote public id"
// @Success 101 {object} dto.QuoteResponse "Switching protocols, then QuoteResponse messages"
// @Failure 404 {object} map[string]string "Quote not found"
// @Router /quotes/{publicId}/stream [get]
func (h *quoteStreamHandler) streamQuote(c *gin.Context) {
	publicID := c.Param("publicId")
	logger := middleware.GetLoggerFromCtx(c.Request.Context()).With(slog.String("public_id", publicID))

	// Subscribe before reading the snapshot so a change committed in between
	// still reaches the stream.
	updates := make(chan domain.Quote, streamBuffer)
	unsubscribe := h.notifier.Subscribe(publicID, func(q domain.Quote) {
		select {
		case updates <- q:
		default:
		}
	})
	defer unsubscribe()

	snapshot, err := h.query.GetByPublicID(c.Request.Context(), publicID)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve quote")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logger.Warn("Websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	if err := writeQuote(conn, snapshot); err != nil {
		logger.Debug("Failed to send initial snapshot", slog.String("error", err.Error()))
		return
	}
	lastSent := snapshot.UpdatedAt

	// Reader goroutine: handles pongs and close frames. Client messages are ignored.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(streamReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	logger.Debug("Quote stream opened")
	for {
		select {
		case <-closed:
			logger.Debug("Quote stream closed by client")
			return
		case <-c.Request.Context().Done():
			return
		case q := <-updates:
			if !q.UpdatedAt.After(lastSent) {
				continue
			}
			lastSent = q.UpdatedAt
			if err := writeQuote(conn, &q); err != nil {
				logger.Debug("Failed to push quote update", slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(streamWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func writeQuote(conn *websocket.Conn, q *domain.Quote) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return conn.WriteJSON(dto.ToQuoteResponse(q))
}
