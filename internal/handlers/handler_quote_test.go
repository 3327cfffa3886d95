package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/swap_exchange_app/internal/apperrors"
	"github.com/SscSPs/swap_exchange_app/internal/core/domain"
	portssvc "github.com/SscSPs/swap_exchange_app/internal/core/ports/services"
	"github.com/SscSPs/swap_exchange_app/internal/dto"
	"github.com/SscSPs/swap_exchange_app/internal/handlers"
	"github.com/SscSPs/swap_exchange_app/internal/middleware"
	"github.com/SscSPs/swap_exchange_app/internal/platform/config"
	"github.com/SscSPs/swap_exchange_app/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Mock QuoteEngineSvc ---
type MockQuoteEngine struct {
	mock.Mock
}

func (m *MockQuoteEngine) CreateQuote(ctx context.Context, req dto.CreateQuoteRequest) (*domain.Quote, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Quote), args.Error(1)
}

var _ portssvc.QuoteEngineSvc = (*MockQuoteEngine)(nil)

// --- Mock QuoteLifecycleSvc ---
type MockLifecycle struct {
	mock.Mock
}

func (m *MockLifecycle) AttachPayout(ctx context.Context, publicID, address string) (*domain.Quote, error) {
	args := m.Called(ctx, publicID, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Quote), args.Error(1)
}
func (m *MockLifecycle) ReportUserPaid(ctx context.Context, publicID, txInHash string) (*domain.Quote, error) {
	args := m.Called(ctx, publicID, txInHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Quote), args.Error(1)
}
func (m *MockLifecycle) ApplySettlementSignal(ctx context.Context, publicID string, req dto.SettlementSignalRequest) (*domain.Quote, error) {
	args := m.Called(ctx, publicID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Quote), args.Error(1)
}
func (m *MockLifecycle) SweepExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
func (m *MockLifecycle) SetStatus(ctx context.Context, req dto.AdminSetStatusRequest, actor string) (*domain.Quote, error) {
	args := m.Called(ctx, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Quote), args.Error(1)
}

var _ portssvc.QuoteLifecycleSvc = (*MockLifecycle)(nil)

// --- Mock QuoteQuerySvc ---
type MockQuery struct {
	mock.Mock
}

func (m *MockQuery) GetByPublicID(ctx context.Context, publicID string) (*domain.Quote, error) {
	args := m.Called(ctx, publicID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Quote), args.Error(1)
}
func (m *MockQuery) ListRecent(ctx context.Context, params dto.ListQuotesParams) (*dto.ListQuotesResponse, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListQuotesResponse), args.Error(1)
}
func (m *MockQuery) ListEvents(ctx context.Context, publicID string) ([]domain.QuoteEvent, error) {
	args := m.Called(ctx, publicID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.QuoteEvent), args.Error(1)
}

var _ portssvc.QuoteQuerySvc = (*MockQuery)(nil)

// --- Mock PriceSvc ---
type MockPrices struct {
	mock.Mock
}

func (m *MockPrices) GetPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]decimal.Decimal), args.Error(1)
}
func (m *MockPrices) Refresh(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

var _ portssvc.PriceSvc = (*MockPrices)(nil)

// stubNotifier records the latest subscription so tests can push updates.
type stubNotifier struct {
	mu           sync.Mutex
	onChange     func(domain.Quote)
	unsubscribed bool
}

func (n *stubNotifier) Subscribe(_ string, onChange func(domain.Quote)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onChange = onChange
	n.unsubscribed = false
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		n.unsubscribed = true
	}
}

func (n *stubNotifier) Publish(q domain.Quote) {
	n.mu.Lock()
	fn := n.onChange
	n.mu.Unlock()
	if fn != nil {
		fn(q)
	}
}

func (n *stubNotifier) isUnsubscribed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.unsubscribed
}

// quoteUpdatedAfter is sampleQuote(status) changed d after creation.
func quoteUpdatedAfter(status domain.QuoteStatus, d time.Duration) *domain.Quote {
	q := sampleQuote(status)
	q.UpdatedAt = q.UpdatedAt.Add(d)
	return q
}

const (
	testJWTSecret    = "handler-test-secret"
	testAdminRole    = "swap_admin"
	testServiceToken = "settlement-token"
	testPublicID     = "q_7f3c2a9e0b1d4c56a8e9f0a1b2c3d4e5"
)

func sampleQuote(status domain.QuoteStatus) *domain.Quote {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Quote{
		ID:             "5b0c6a0e-3a55-4d38-9d2e-9a3b1f0c1a11",
		PublicID:       testPublicID,
		BaseSymbol:     "USDT",
		QuoteSymbol:    "SOL",
		Chain:          "SOL",
		AmountIn:       decimal.RequireFromString("100"),
		Rate:           decimal.RequireFromString("0.006666666666666667"),
		AmountOut:      decimal.RequireFromString("0.6666666666666667"),
		DepositAddress: "TQn9Y2khEsLJW1ChVWFMSMeRDow5KcbLSE",
		Status:         status,
		ExpiresAt:      now.Add(10 * time.Minute),
		AuditFields:    domain.AuditFields{CreatedAt: now, UpdatedAt: now},
	}
}

type QuoteHandlerTestSuite struct {
	suite.Suite
	router    *gin.Engine
	engine    *MockQuoteEngine
	lifecycle *MockLifecycle
	query     *MockQuery
	prices    *MockPrices
	notifier  *stubNotifier
}

func (s *QuoteHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.engine = new(MockQuoteEngine)
	s.lifecycle = new(MockLifecycle)
	s.query = new(MockQuery)
	s.prices = new(MockPrices)
	s.notifier = &stubNotifier{}
	s.Require().NoError(dto.RegisterValidators())

	hash, err := middleware.HashServiceToken(testServiceToken)
	s.Require().NoError(err)

	cfg := &config.Config{
		IsProduction:     true,
		JWTSecret:        testJWTSecret,
		AdminRole:        testAdminRole,
		ServiceTokenHash: hash,
	}
	services := &portssvc.ServiceContainer{
		Price:     s.prices,
		Quote:     s.engine,
		Lifecycle: s.lifecycle,
		Query:     s.query,
		Notifier:  s.notifier,
	}

	s.router = gin.New()
	handlers.RegisterRoutes(s.router, cfg, services, nil, nil)
}

func TestQuoteHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(QuoteHandlerTestSuite))
}

func (s *QuoteHandlerTestSuite) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *QuoteHandlerTestSuite) adminHeaders(role string) map[string]string {
	token, err := utils.GenerateStaffJWT("ops@swap", role, testJWTSecret, time.Hour, "")
	s.Require().NoError(err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func (s *QuoteHandlerTestSuite) TestCreateQuote_Success() {
	s.engine.On("CreateQuote", mock.Anything, mock.MatchedBy(func(req dto.CreateQuoteRequest) bool {
		return req.BaseSymbol == "USDT" && req.AmountIn != nil && req.AmountIn.Equal(decimal.NewFromInt(100))
	})).Return(sampleQuote(domain.StatusAwaitingPayment), nil).Once()

	w := s.do(http.MethodPost, "/quotes", `{"baseSymbol":"USDT","quoteSymbol":"SOL","chain":"SOL","amountIn":"100"}`, nil)

	s.Equal(http.StatusCreated, w.Code)
	var resp dto.QuoteResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(testPublicID, resp.PublicID)
	s.Equal(domain.StatusAwaitingPayment, resp.Status)
	s.Equal("0.66666667", resp.AmountOutDisplay)
	s.Nil(resp.PayoutAddress)
	s.engine.AssertExpectations(s.T())
}

func (s *QuoteHandlerTestSuite) TestCreateQuote_BindingError() {
	w := s.do(http.MethodPost, "/quotes", `{"baseSymbol":"USDT","chain":"SOL"}`, nil)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "Invalid request format")
	s.engine.AssertNotCalled(s.T(), "CreateQuote", mock.Anything, mock.Anything)
}

func (s *QuoteHandlerTestSuite) TestCreateQuote_ErrorMapping() {
	cases := []struct {
		name      string
		err       error
		status    int
		retryable bool
	}{
		{"unsupported asset", apperrors.NewUnsupportedAssetError("unsupported asset: PEPE"), http.StatusBadRequest, false},
		{"validation", apperrors.NewValidationError("amountIn must be greater than zero"), http.StatusBadRequest, false},
		{"price feed down", apperrors.NewPriceFeedError("no price snapshot", errors.New("upstream 502")), http.StatusServiceUnavailable, true},
		{"storage", apperrors.NewStorageError("insert failed", errors.New("conn reset")), http.StatusInternalServerError, false},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.engine.On("CreateQuote", mock.Anything, mock.Anything).Return(nil, tc.err).Once()

			w := s.do(http.MethodPost, "/quotes", `{"baseSymbol":"USDT","quoteSymbol":"SOL","chain":"SOL","amountIn":1}`, nil)

			s.Equal(tc.status, w.Code)
			var body map[string]any
			s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
			s.NotEmpty(body["error"])
			if tc.retryable {
				s.Equal(true, body["retryable"])
			} else {
				s.NotContains(body, "retryable")
			}
			s.NotContains(body["error"], "conn reset", "driver errors are not exposed")
		})
	}
}

func (s *QuoteHandlerTestSuite) TestGetQuote() {
	s.query.On("GetByPublicID", mock.Anything, testPublicID).Return(sampleQuote(domain.StatusExpired), nil).Once()
	s.query.On("GetByPublicID", mock.Anything, "q_missing").Return(nil, apperrors.NewNotFoundError("quote not found")).Once()

	w := s.do(http.MethodGet, "/quotes/"+testPublicID, "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"status":"expired"`)

	w = s.do(http.MethodGet, "/quotes/q_missing", "", nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.JSONEq(`{"error":"quote not found"}`, w.Body.String())
}

func (s *QuoteHandlerTestSuite) TestAttachPayout() {
	q := sampleQuote(domain.StatusAwaitingPayment)
	addr := "So11111111111111111111111111111111111111112"
	q.PayoutAddress = &addr
	s.lifecycle.On("AttachPayout", mock.Anything, testPublicID, addr).Return(q, nil).Once()
	s.lifecycle.On("AttachPayout", mock.Anything, testPublicID, "0xnope").
		Return(nil, apperrors.NewAppError(http.StatusBadRequest, "invalid payout address for SOL", apperrors.ErrInvalidAddress)).Once()
	s.lifecycle.On("AttachPayout", mock.Anything, "q_expired", addr).
		Return(nil, apperrors.NewConflictError("quote has expired")).Once()

	w := s.do(http.MethodPatch, "/quotes/"+testPublicID+"/payout", `{"payoutAddress":"`+addr+`"}`, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), addr)

	w = s.do(http.MethodPatch, "/quotes/"+testPublicID+"/payout", `{"payoutAddress":"0xnope"}`, nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPatch, "/quotes/q_expired/payout", `{"payoutAddress":"`+addr+`"}`, nil)
	s.Equal(http.StatusConflict, w.Code)

	w = s.do(http.MethodPatch, "/quotes/"+testPublicID+"/payout", `{}`, nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.lifecycle.AssertExpectations(s.T())
}

func (s *QuoteHandlerTestSuite) TestReportPaid() {
	q := sampleQuote(domain.StatusAwaitingReview)
	s.lifecycle.On("ReportUserPaid", mock.Anything, testPublicID, "5KtP9x").Return(q, nil).Once()

	w := s.do(http.MethodPost, "/quotes/"+testPublicID+"/paid", `{"txInHash":"5KtP9x"}`, nil)

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"status":"awaiting_review"`)
	s.lifecycle.AssertExpectations(s.T())
}

func (s *QuoteHandlerTestSuite) TestListEvents() {
	events := []domain.QuoteEvent{
		{ID: 1, PublicID: testPublicID, Type: domain.EventCreated, Payload: map[string]any{"rate": "0.0066"}},
		{ID: 2, PublicID: testPublicID, Type: domain.EventExpired, Payload: map[string]any{"trigger": "read"}},
	}
	s.query.On("ListEvents", mock.Anything, testPublicID).Return(events, nil).Once()

	w := s.do(http.MethodGet, "/quotes/"+testPublicID+"/events", "", nil)

	s.Equal(http.StatusOK, w.Code)
	var resp []dto.QuoteEventResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().Len(resp, 2)
	s.Equal(string(domain.EventCreated), resp[0].Type)
	s.Equal("read", resp[1].Payload["trigger"])
}

func (s *QuoteHandlerTestSuite) TestGetPrices() {
	prices := map[string]decimal.Decimal{"bitcoin": decimal.NewFromInt(65000)}
	s.prices.On("GetPrices", mock.Anything, []string{"bitcoin", "not-a-coin"}).Return(prices, nil).Once()

	w := s.do(http.MethodGet, "/prices?ids=Bitcoin,%20not-a-coin,", "", nil)

	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"usd":{"bitcoin":"65000"}}`, w.Body.String())

	w = s.do(http.MethodGet, "/prices", "", nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/prices?ids=,,", "", nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.prices.AssertExpectations(s.T())
}

func (s *QuoteHandlerTestSuite) TestAdminRoutes_RequireAdminRole() {
	w := s.do(http.MethodGet, "/admin/quotes", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/admin/quotes", "", s.adminHeaders("support"))
	s.Equal(http.StatusForbidden, w.Code)
	s.query.AssertNotCalled(s.T(), "ListRecent", mock.Anything, mock.Anything)
}

func (s *QuoteHandlerTestSuite) TestAdminListQuotes() {
	next := "token-2"
	resp := &dto.ListQuotesResponse{
		Quotes:    dto.ToQuoteResponseList([]domain.Quote{*sampleQuote(domain.StatusAwaitingReview)}),
		NextToken: &next,
	}
	s.query.On("ListRecent", mock.Anything, dto.ListQuotesParams{Limit: 1, NextToken: "token-1"}).Return(resp, nil).Once()

	w := s.do(http.MethodGet, "/admin/quotes?limit=1&nextToken=token-1", "", s.adminHeaders(testAdminRole))
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"nextToken":"token-2"`)

	w = s.do(http.MethodGet, "/admin/quotes?limit=500", "", s.adminHeaders(testAdminRole))
	s.Equal(http.StatusBadRequest, w.Code)
	s.query.AssertExpectations(s.T())
}

func (s *QuoteHandlerTestSuite) TestAdminSetStatus_PassesActor() {
	expected := dto.AdminSetStatusRequest{PublicID: testPublicID, Status: domain.StatusFailed, Note: "refunded"}
	s.lifecycle.On("SetStatus", mock.Anything, expected, "ops@swap").Return(sampleQuote(domain.StatusFailed), nil).Once()

	w := s.do(http.MethodPatch, "/admin/quotes", `{"publicId":"`+testPublicID+`","status":"failed","note":"refunded"}`, s.adminHeaders(testAdminRole))

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"status":"failed"`)
	s.lifecycle.AssertExpectations(s.T())
}

func (s *QuoteHandlerTestSuite) TestAdminSweep() {
	s.lifecycle.On("SweepExpired", mock.Anything).Return(3, nil).Once()

	w := s.do(http.MethodPost, "/admin/quotes/sweep", "", s.adminHeaders(testAdminRole))

	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"expired":3}`, w.Body.String())
}

func (s *QuoteHandlerTestSuite) TestSettlementSignal() {
	out := "0xabc"
	q := sampleQuote(domain.StatusSuccess)
	q.TxOutHash = &out
	s.lifecycle.On("ApplySettlementSignal", mock.Anything, testPublicID, mock.MatchedBy(func(req dto.SettlementSignalRequest) bool {
		return req.Status == domain.StatusSuccess && req.TxOutHash != nil && *req.TxOutHash == out
	})).Return(q, nil).Once()
	s.lifecycle.On("ApplySettlementSignal", mock.Anything, "q_closed", mock.Anything).
		Return(nil, apperrors.NewConflictError("transition from expired to confirming is not allowed")).Once()

	path := "/settlement/quotes/" + testPublicID + "/signal"
	token := map[string]string{middleware.ServiceTokenHeader: testServiceToken}

	w := s.do(http.MethodPost, path, `{"status":"success","txOutHash":"0xabc"}`, nil)
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, path, `{"status":"success","txOutHash":"0xabc"}`, token)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPost, path, `{"status":"expired"}`, token)
	s.Equal(http.StatusBadRequest, w.Code, "settlement cannot expire a quote")

	w = s.do(http.MethodPost, "/settlement/quotes/q_closed/signal", `{"status":"confirming"}`, token)
	s.Equal(http.StatusConflict, w.Code)
	s.lifecycle.AssertExpectations(s.T())
}

func (s *QuoteHandlerTestSuite) TestStreamQuote_PushesSnapshotAndUpdates() {
	s.query.On("GetByPublicID", mock.Anything, testPublicID).Return(sampleQuote(domain.StatusAwaitingPayment), nil).Once()

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/quotes/" + testPublicID + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var first dto.QuoteResponse
	s.Require().NoError(conn.ReadJSON(&first))
	s.Equal(domain.StatusAwaitingPayment, first.Status)

	s.notifier.Publish(*sampleQuote(domain.StatusAwaitingPayment)) // same state as the snapshot
	s.notifier.Publish(*quoteUpdatedAfter(domain.StatusConfirming, time.Minute))
	var second dto.QuoteResponse
	s.Require().NoError(conn.ReadJSON(&second))
	s.Equal(domain.StatusConfirming, second.Status)

	s.Require().NoError(conn.Close())
	s.Eventually(s.notifier.isUnsubscribed, 2*time.Second, 10*time.Millisecond)
}

func (s *QuoteHandlerTestSuite) TestStreamQuote_ChangeDuringSnapshotReadIsDelivered() {
	s.query.On("GetByPublicID", mock.Anything, testPublicID).
		Run(func(mock.Arguments) {
			s.notifier.Publish(*quoteUpdatedAfter(domain.StatusConfirming, time.Minute))
		}).
		Return(sampleQuote(domain.StatusAwaitingPayment), nil).Once()

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/quotes/" + testPublicID + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var first, second dto.QuoteResponse
	s.Require().NoError(conn.ReadJSON(&first))
	s.Equal(domain.StatusAwaitingPayment, first.Status)
	s.Require().NoError(conn.ReadJSON(&second))
	s.Equal(domain.StatusConfirming, second.Status)
}

func (s *QuoteHandlerTestSuite) TestStreamQuote_UnknownQuote() {
	s.query.On("GetByPublicID", mock.Anything, "q_missing").Return(nil, apperrors.NewNotFoundError("quote not found")).Once()

	w := s.do(http.MethodGet, "/quotes/q_missing/stream", "", nil)

	s.Equal(http.StatusNotFound, w.Code)
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers.RegisterRoutes(r, &config.Config{IsProduction: true}, &portssvc.ServiceContainer{}, nil, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Fatalf("unexpected health response: %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("metrics should not be mounted without a registry, got %d", w.Code)
	}
}
