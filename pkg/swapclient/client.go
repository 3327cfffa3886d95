// Package swapclient is a Go client for the public swap API and the wizard
// controller that sequences it.
package swapclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// Sentinel errors matched by APIError via errors.Is.
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrRateLimited          = errors.New("rate limited")
	ErrPriceFeedUnavailable = errors.New("price feed unavailable")
)

// APIError is a non-2xx response decoded from the {"error": ...} body.
type APIError struct {
	Status    int
	Message   string
	Retryable bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("swap api: %d %s", e.Status, e.Message)
}

// Is maps the status code to the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrInvalidRequest:
		return e.Status == http.StatusBadRequest
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrConflict:
		return e.Status == http.StatusConflict
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	case ErrPriceFeedUnavailable:
		return e.Status == http.StatusServiceUnavailable
	}
	return false
}

// Quote statuses as reported by the API.
const (
	StatusAwaitingPayment = "awaiting_payment"
	StatusAwaitingReview  = "awaiting_review"
	StatusConfirming      = "confirming"
	StatusSuccess         = "success"
	StatusFailed          = "failed"
	StatusExpired         = "expired"
)

// Quote mirrors the API quote representation.
type Quote struct {
	PublicID         string          `json:"publicId"`
	BaseSymbol       string          `json:"baseSymbol"`
	QuoteSymbol      string          `json:"quoteSymbol"`
	Chain            string          `json:"chain"`
	AmountIn         decimal.Decimal `json:"amountIn"`
	Rate             decimal.Decimal `json:"rate"`
	AmountOut        decimal.Decimal `json:"amountOut"`
	RateDisplay      string          `json:"rateDisplay"`
	AmountOutDisplay string          `json:"amountOutDisplay"`
	DepositAddress   string          `json:"depositAddress"`
	PayoutAddress    *string         `json:"payoutAddress"`
	Status           string          `json:"status"`
	ExpiresAt        time.Time       `json:"expiresAt"`
	TxInHash         *string         `json:"txInHash"`
	TxOutHash        *string         `json:"txOutHash"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// IsTerminal reports whether the quote can no longer change status.
func (q Quote) IsTerminal() bool {
	return q.Status == StatusSuccess || q.Status == StatusFailed || q.Status == StatusExpired
}

// QuoteEvent is one audit log entry.
type QuoteEvent struct {
	ID        int64          `json:"id"`
	PublicID  string         `json:"publicId"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"createdAt"`
}

// CreateQuoteRequest is the input of CreateQuote.
type CreateQuoteRequest struct {
	BaseSymbol  string          `json:"baseSymbol"`
	QuoteSymbol string          `json:"quoteSymbol"`
	Chain       string          `json:"chain"`
	AmountIn    decimal.Decimal `json:"amountIn"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// Client calls the public swap API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for baseURL, e.g. "https://swap.example".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateQuote requests a new rate-locked quote.
func (c *Client) CreateQuote(ctx context.Context, req CreateQuoteRequest) (*Quote, error) {
	var q Quote
	if err := c.do(ctx, http.MethodPost, "/quotes", req, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// GetQuote reads a quote by its public id.
func (c *Client) GetQuote(ctx context.Context, publicID string) (*Quote, error) {
	var q Quote
	if err := c.do(ctx, http.MethodGet, "/quotes/"+url.PathEscape(publicID), nil, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// AttachPayout sets the payout address of a quote.
func (c *Client) AttachPayout(ctx context.Context, publicID, address string) (*Quote, error) {
	var q Quote
	body := map[string]string{"payoutAddress": address}
	if err := c.do(ctx, http.MethodPatch, "/quotes/"+url.PathEscape(publicID)+"/payout", body, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// ReportPaid records the user's inbound transaction hash.
func (c *Client) ReportPaid(ctx context.Context, publicID, txInHash string) (*Quote, error) {
	var q Quote
	body := map[string]string{"txInHash": txInHash}
	if err := c.do(ctx, http.MethodPost, "/quotes/"+url.PathEscape(publicID)+"/paid", body, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// ListEvents returns the audit log of a quote, oldest first.
func (c *Client) ListEvents(ctx context.Context, publicID string) ([]QuoteEvent, error) {
	var events []QuoteEvent
	if err := c.do(ctx, http.MethodGet, "/quotes/"+url.PathEscape(publicID)+"/events", nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Prices returns USD prices for price-feed ids. Unknown ids are absent.
func (c *Client) Prices(ctx context.Context, ids ...string) (map[string]decimal.Decimal, error) {
	var resp struct {
		USD map[string]decimal.Decimal `json:"usd"`
	}
	q := url.Values{"ids": {strings.Join(ids, ",")}}
	if err := c.do(ctx, http.MethodGet, "/prices?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.USD, nil
}

// StreamURL returns the websocket URL of a quote's change stream.
func (c *Client) StreamURL(publicID string) string {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/quotes/" + url.PathEscape(publicID) + "/stream"
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Error     string `json:"error"`
			Retryable bool   `json:"retryable"`
		}
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
			apiErr.Retryable = payload.Retryable
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
