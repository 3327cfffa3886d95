package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/swap_exchange_app/internal/apperrors"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public CoinGecko API.
	DefaultBaseURL = "https://api.coingecko.com/api/v3"

	sourceName     = "coingecko"
	vsCurrency     = "usd"
	maxBodyBytes   = 1 << 20
	demoKeyHeader  = "x-cg-demo-api-key"
	proKeyHeader   = "x-cg-pro-api-key"
	defaultTimeout = 10 * time.Second
)

// CoinGeckoConfig configures the CoinGecko source.
type CoinGeckoConfig struct {
	BaseURL           string
	APIKey            string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	Retry             RetryConfig
}

// CoinGecko implements Source against the /simple/price endpoint.
type CoinGecko struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	retryer    *retryer
	logger     *slog.Logger
}

// NewCoinGecko creates a CoinGecko source.
func NewCoinGecko(cfg CoinGeckoConfig, logger *slog.Logger) *CoinGecko {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultTimeout
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	logger = logger.With("source", sourceName)
	return &CoinGecko{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		limiter:    rate.NewLimiter(limit, 1),
		retryer:    newRetryer(cfg.Retry, logger),
		logger:     logger,
	}
}

func (c *CoinGecko) Name() string { return sourceName }

// Fetch returns the USD price of every id the upstream knows.
// All failures wrap apperrors.ErrPriceFeedUnavailable.
func (c *CoinGecko) Fetch(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	ids = distinct(ids)
	if len(ids) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	var prices map[string]decimal.Decimal
	err := c.retryer.execute(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		p, err := c.fetchOnce(ctx, ids)
		if err != nil {
			return err
		}
		prices = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrPriceFeedUnavailable, sourceName, err)
	}
	return prices, nil
}

func (c *CoinGecko) fetchOnce(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", vsCurrency)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		header := demoKeyHeader
		if strings.Contains(c.baseURL, "pro-api") {
			header = proKeyHeader
		}
		req.Header.Set(header, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, &retryableError{err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("read body: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &retryableError{
			err:        fmt.Errorf("upstream status %d", resp.StatusCode),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
	}

	var payload map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}

	prices := make(map[string]decimal.Decimal, len(payload))
	for _, id := range ids {
		quotes, ok := payload[id]
		if !ok {
			continue
		}
		usd, ok := quotes[vsCurrency]
		if !ok || !usd.IsPositive() {
			c.logger.Debug("Dropping unusable price", "id", id)
			continue
		}
		prices[id] = usd
	}
	return prices, nil
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
