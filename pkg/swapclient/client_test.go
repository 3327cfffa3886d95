package swapclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreateQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/quotes", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "USDT", body["baseSymbol"])
		assert.Equal(t, "100.5", body["amountIn"])

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"publicId":"q_1","status":"awaiting_payment","amountOut":"0.67","expiresAt":"2025-06-01T12:10:00Z"}`)
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	q, err := c.CreateQuote(context.Background(), CreateQuoteRequest{
		BaseSymbol:  "USDT",
		QuoteSymbol: "SOL",
		Chain:       "SOL",
		AmountIn:    decimal.RequireFromString("100.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, "q_1", q.PublicID)
	assert.True(t, q.AmountOut.Equal(decimal.RequireFromString("0.67")))
	assert.Equal(t, time.Date(2025, 6, 1, 12, 10, 0, 0, time.UTC), q.ExpiresAt.UTC())
	assert.False(t, q.IsTerminal())
}

func TestClient_TypedErrors(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		sentinel  error
		retryable bool
		message   string
	}{
		{"not found", http.StatusNotFound, `{"error":"quote not found"}`, ErrNotFound, false, "quote not found"},
		{"conflict", http.StatusConflict, `{"error":"quote has expired"}`, ErrConflict, false, "quote has expired"},
		{"bad request", http.StatusBadRequest, `{"error":"unsupported asset: PEPE"}`, ErrInvalidRequest, false, "unsupported asset: PEPE"},
		{"price feed", http.StatusServiceUnavailable, `{"error":"Price feed unavailable, please retry","retryable":true}`, ErrPriceFeedUnavailable, true, "Price feed unavailable, please retry"},
		{"rate limited without body", http.StatusTooManyRequests, ``, ErrRateLimited, false, "Too Many Requests"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := New(srv.URL).GetQuote(context.Background(), "q_1")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.sentinel)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.retryable, apiErr.Retryable)
			assert.Equal(t, tc.message, apiErr.Message)
		})
	}
}

func TestClient_PricesAndEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/prices":
			assert.Equal(t, "bitcoin,tether", r.URL.Query().Get("ids"))
			_, _ = io.WriteString(w, `{"usd":{"bitcoin":"65000.12","tether":"1"}}`)
		case "/quotes/q_1/events":
			_, _ = io.WriteString(w, `[{"id":1,"publicId":"q_1","type":"CREATED","payload":{}},{"id":2,"publicId":"q_1","type":"EXPIRED","payload":{"trigger":"read"}}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := New(srv.URL)

	prices, err := c.Prices(context.Background(), "bitcoin", "tether")
	require.NoError(t, err)
	assert.True(t, prices["bitcoin"].Equal(decimal.RequireFromString("65000.12")))
	_, ok := prices["dogecoin"]
	assert.False(t, ok)

	events, err := c.ListEvents(context.Background(), "q_1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "EXPIRED", events[1].Type)
	assert.Equal(t, "read", events[1].Payload["trigger"])
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithTimeout(50*time.Millisecond)).GetQuote(context.Background(), "q_1")
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "transport failures are not API errors")
}

func TestClient_StreamURL(t *testing.T) {
	assert.Equal(t, "wss://swap.example/quotes/q_1/stream", New("https://swap.example").StreamURL("q_1"))
	assert.Equal(t, "ws://localhost:8080/quotes/q_1/stream", New("http://localhost:8080/").StreamURL("q_1"))
}

func TestBackoff(t *testing.T) {
	b := NewBackoff()
	want := []time.Duration{1, 2, 4, 8, 16, 32, 60, 60}
	for i, w := range want {
		assert.Equal(t, w*time.Second, b.Next(), "attempt %d", i)
	}
	b.Reset()
	assert.Equal(t, time.Second, b.Next())
}
