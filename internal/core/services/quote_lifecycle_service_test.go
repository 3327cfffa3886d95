package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/swap_exchange_app/internal/apperrors"
	"github.com/SscSPs/swap_exchange_app/internal/core/domain"
	portssvc "github.com/SscSPs/swap_exchange_app/internal/core/ports/services"
	"github.com/SscSPs/swap_exchange_app/internal/core/services"
	"github.com/SscSPs/swap_exchange_app/internal/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type QuoteLifecycleTestSuite struct {
	suite.Suite
	repo      *memQuoteRepo
	clock     *fakeClock
	lifecycle portssvc.QuoteLifecycleSvc
	query     portssvc.QuoteQuerySvc
}

func (suite *QuoteLifecycleTestSuite) SetupTest() {
	suite.repo = newMemQuoteRepo()
	suite.clock = newFakeClock()
	suite.lifecycle = services.NewQuoteLifecycleService(suite.repo, services.WithClock(suite.clock.Now))
	suite.query = services.NewQuoteQueryService(suite.repo, services.WithClock(suite.clock.Now))
}

func TestQuoteLifecycleTestSuite(t *testing.T) {
	suite.Run(t, new(QuoteLifecycleTestSuite))
}

// seed stores an open USDT->SOL quote created now.
func (suite *QuoteLifecycleTestSuite) seed(status domain.QuoteStatus) domain.Quote {
	now := suite.clock.Now()
	q := domain.Quote{
		ID:             uuid.NewString(),
		PublicID:       domain.PublicIDPrefix + uuid.NewString(),
		BaseSymbol:     "USDT",
		QuoteSymbol:    "SOL",
		Chain:          "ethereum",
		AmountIn:       dec("100"),
		Rate:           dec("0.006666666666666667"),
		AmountOut:      dec("0.6666666666666667"),
		DepositAddress: usdtDeposit,
		Status:         status,
		ExpiresAt:      now.Add(domain.DefaultQuoteValidity),
		AuditFields:    domain.AuditFields{CreatedAt: now, UpdatedAt: now},
	}
	suite.repo.put(q)
	return q
}

func (suite *QuoteLifecycleTestSuite) TestAttachPayout_FirstWriteWins() {
	ctx := context.Background()
	q := suite.seed(domain.StatusAwaitingPayment)

	updated, err := suite.lifecycle.AttachPayout(ctx, q.PublicID, solPayout)
	suite.Require().NoError(err)
	suite.Equal(solPayout, *updated.PayoutAddress)
	suite.Equal(domain.StatusAwaitingPayment, updated.Status, "attaching a payout does not advance status")

	// A second, even invalid, submission is discarded.
	again, err := suite.lifecycle.AttachPayout(ctx, q.PublicID, "not-an-address")
	suite.Require().NoError(err)
	suite.Equal(solPayout, *again.PayoutAddress)
	suite.Len(suite.repo.eventsOf(q.PublicID, domain.EventPayoutAttached), 1)
}

func (suite *QuoteLifecycleTestSuite) TestAttachPayout_ConcurrentCallersSeeOneWinner() {
	ctx := context.Background()
	q := suite.seed(domain.StatusAwaitingPayment)
	candidates := []string{
		solPayout,
		"11111111111111111111111111111111",
		"SysvarRent111111111111111111111111111111111",
	}

	var wg sync.WaitGroup
	results := make([]string, 12)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := suite.lifecycle.AttachPayout(ctx, q.PublicID, candidates[i%len(candidates)])
			if err == nil {
				results[i] = *got.PayoutAddress
			}
		}(i)
	}
	wg.Wait()

	stored, err := suite.repo.FindQuoteByPublicID(ctx, q.PublicID)
	suite.Require().NoError(err)
	for _, r := range results {
		suite.Equal(*stored.PayoutAddress, r)
	}
	suite.Len(suite.repo.eventsOf(q.PublicID, domain.EventPayoutAttached), 1)
}

func (suite *QuoteLifecycleTestSuite) TestAttachPayout_InvalidAddress() {
	q := suite.seed(domain.StatusAwaitingPayment)

	_, err := suite.lifecycle.AttachPayout(context.Background(), q.PublicID, ethPayout)
	suite.ErrorIs(err, apperrors.ErrInvalidAddress)
	suite.Empty(suite.repo.eventsOf(q.PublicID, domain.EventPayoutAttached))
}

func (suite *QuoteLifecycleTestSuite) TestAttachPayout_ClosedQuote() {
	ctx := context.Background()
	expiring := suite.seed(domain.StatusAwaitingPayment)
	failed := suite.seed(domain.StatusFailed)

	_, err := suite.lifecycle.AttachPayout(ctx, failed.PublicID, solPayout)
	suite.ErrorIs(err, apperrors.ErrConflict)

	suite.clock.Advance(11 * time.Minute)
	_, err = suite.lifecycle.AttachPayout(ctx, expiring.PublicID, solPayout)
	suite.ErrorIs(err, apperrors.ErrConflict)

	_, err = suite.lifecycle.AttachPayout(ctx, "q_missing", solPayout)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *QuoteLifecycleTestSuite) TestReportUserPaid() {
	ctx := context.Background()
	q := suite.seed(domain.StatusAwaitingPayment)

	updated, err := suite.lifecycle.ReportUserPaid(ctx, q.PublicID, "0xabc")
	suite.Require().NoError(err)
	suite.Equal(domain.StatusAwaitingReview, updated.Status)
	suite.Equal("0xabc", *updated.TxInHash)

	// Last write wins on the hash, status stays.
	suite.clock.Advance(time.Second)
	updated, err = suite.lifecycle.ReportUserPaid(ctx, q.PublicID, "0xdef")
	suite.Require().NoError(err)
	suite.Equal(domain.StatusAwaitingReview, updated.Status)
	suite.Equal("0xdef", *updated.TxInHash)
	suite.Len(suite.repo.eventsOf(q.PublicID, domain.EventUserPaid), 2)

	_, err = suite.lifecycle.ReportUserPaid(ctx, q.PublicID, "   ")
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *QuoteLifecycleTestSuite) TestReportUserPaid_Rejected() {
	ctx := context.Background()
	done := suite.seed(domain.StatusSuccess)
	late := suite.seed(domain.StatusAwaitingPayment)

	_, err := suite.lifecycle.ReportUserPaid(ctx, done.PublicID, "0xabc")
	suite.ErrorIs(err, apperrors.ErrConflict)

	suite.clock.Advance(domain.DefaultQuoteValidity + time.Second)
	_, err = suite.lifecycle.ReportUserPaid(ctx, late.PublicID, "0xabc")
	suite.ErrorIs(err, apperrors.ErrConflict)
}

func (suite *QuoteLifecycleTestSuite) TestApplySettlementSignal_Monotonic() {
	ctx := context.Background()
	q := suite.seed(domain.StatusAwaitingPayment)

	_, err := suite.lifecycle.ApplySettlementSignal(ctx, q.PublicID, dto.SettlementSignalRequest{Status: domain.StatusConfirming})
	suite.ErrorIs(err, apperrors.ErrConflict, "confirming requires a reported payment")

	_, err = suite.lifecycle.ReportUserPaid(ctx, q.PublicID, "0xin")
	suite.Require().NoError(err)

	confirming, err := suite.lifecycle.ApplySettlementSignal(ctx, q.PublicID, dto.SettlementSignalRequest{Status: domain.StatusConfirming})
	suite.Require().NoError(err)
	suite.Equal(domain.StatusConfirming, confirming.Status)

	_, err = suite.lifecycle.ApplySettlementSignal(ctx, q.PublicID, dto.SettlementSignalRequest{Status: domain.StatusSuccess})
	suite.ErrorIs(err, apperrors.ErrValidation, "success needs txOutHash")

	success, err := suite.lifecycle.ApplySettlementSignal(ctx, q.PublicID, dto.SettlementSignalRequest{
		Status: domain.StatusSuccess, TxOutHash: strPtr("5xSolTx"),
	})
	suite.Require().NoError(err)
	suite.Equal(domain.StatusSuccess, success.Status)
	suite.Equal("5xSolTx", *success.TxOutHash)
	suite.Equal("0xin", *success.TxInHash)

	// Terminal states absorb every automatic signal.
	for _, to := range []domain.QuoteStatus{domain.StatusFailed, domain.StatusConfirming, domain.StatusSuccess} {
		_, err = suite.lifecycle.ApplySettlementSignal(ctx, q.PublicID, dto.SettlementSignalRequest{Status: to, TxOutHash: strPtr("x")})
		suite.ErrorIs(err, apperrors.ErrConflict)
	}
	_, err = suite.lifecycle.ReportUserPaid(ctx, q.PublicID, "0xlate")
	suite.ErrorIs(err, apperrors.ErrConflict)

	signals := suite.repo.eventsOf(q.PublicID, domain.EventSettlementSignal)
	suite.Require().Len(signals, 2)
	suite.Equal("awaiting_review", signals[0].Payload["from"])
	suite.Equal("confirming", signals[1].Payload["from"])
}

func (suite *QuoteLifecycleTestSuite) TestApplySettlementSignal_RejectsNonSettlementStatus() {
	q := suite.seed(domain.StatusAwaitingReview)
	_, err := suite.lifecycle.ApplySettlementSignal(context.Background(), q.PublicID, dto.SettlementSignalRequest{Status: domain.StatusExpired})
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *QuoteLifecycleTestSuite) TestApplySettlementSignal_FailedFromAnyOpenState() {
	ctx := context.Background()
	for _, st := range domain.NonTerminalStatuses() {
		q := suite.seed(st)
		updated, err := suite.lifecycle.ApplySettlementSignal(ctx, q.PublicID, dto.SettlementSignalRequest{Status: domain.StatusFailed})
		suite.Require().NoError(err, st)
		suite.Equal(domain.StatusFailed, updated.Status)
	}
}

func (suite *QuoteLifecycleTestSuite) TestSweepExpired_Idempotent() {
	ctx := context.Background()
	open1 := suite.seed(domain.StatusAwaitingPayment)
	open2 := suite.seed(domain.StatusAwaitingReview)
	done := suite.seed(domain.StatusSuccess)

	n, err := suite.lifecycle.SweepExpired(ctx)
	suite.Require().NoError(err)
	suite.Equal(0, n, "nothing is overdue yet")

	suite.clock.Advance(domain.DefaultQuoteValidity + time.Second)
	n, err = suite.lifecycle.SweepExpired(ctx)
	suite.Require().NoError(err)
	suite.Equal(2, n)

	n, err = suite.lifecycle.SweepExpired(ctx)
	suite.Require().NoError(err)
	suite.Equal(0, n)

	for _, id := range []string{open1.PublicID, open2.PublicID} {
		q, err := suite.repo.FindQuoteByPublicID(ctx, id)
		suite.Require().NoError(err)
		suite.Equal(domain.StatusExpired, q.Status)
		events := suite.repo.eventsOf(id, domain.EventExpired)
		suite.Require().Len(events, 1)
		suite.Equal("sweep", events[0].Payload["trigger"])
		suite.Equal(suite.clock.Now().UTC().Format(time.RFC3339), events[0].Payload["expired_at"])
	}
	stored, _ := suite.repo.FindQuoteByPublicID(ctx, done.PublicID)
	suite.Equal(domain.StatusSuccess, stored.Status)
}

func (suite *QuoteLifecycleTestSuite) TestSetStatus_OverridesTerminal() {
	ctx := context.Background()
	q := suite.seed(domain.StatusExpired)

	updated, err := suite.lifecycle.SetStatus(ctx, dto.AdminSetStatusRequest{
		PublicID:  q.PublicID,
		Status:    domain.StatusSuccess,
		TxOutHash: strPtr("0xout"),
		Note:      "paid manually",
	}, "ops@swap")
	suite.Require().NoError(err)
	suite.Equal(domain.StatusSuccess, updated.Status)
	suite.Equal("0xout", *updated.TxOutHash)

	events := suite.repo.eventsOf(q.PublicID, domain.EventAdminStatusOverride)
	suite.Require().Len(events, 1)
	suite.Equal("expired", events[0].Payload["from"])
	suite.Equal("success", events[0].Payload["to"])
	suite.Equal("ops@swap", events[0].Payload["actor"])
	suite.Equal("paid manually", events[0].Payload["note"])
}

func (suite *QuoteLifecycleTestSuite) TestSetStatus_Errors() {
	ctx := context.Background()
	_, err := suite.lifecycle.SetStatus(ctx, dto.AdminSetStatusRequest{PublicID: "q_missing", Status: domain.StatusFailed}, "ops")
	suite.ErrorIs(err, apperrors.ErrNotFound)

	q := suite.seed(domain.StatusAwaitingPayment)
	_, err = suite.lifecycle.SetStatus(ctx, dto.AdminSetStatusRequest{PublicID: q.PublicID, Status: "refunded"}, "ops")
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *QuoteLifecycleTestSuite) TestGetByPublicID_ExpiresOnRead() {
	ctx := context.Background()
	q := suite.seed(domain.StatusAwaitingPayment)

	got, err := suite.query.GetByPublicID(ctx, q.PublicID)
	suite.Require().NoError(err)
	suite.Equal(domain.StatusAwaitingPayment, got.Status)

	suite.clock.Advance(domain.DefaultQuoteValidity + time.Millisecond)
	got, err = suite.query.GetByPublicID(ctx, q.PublicID)
	suite.Require().NoError(err)
	suite.Equal(domain.StatusExpired, got.Status)

	events := suite.repo.eventsOf(q.PublicID, domain.EventExpired)
	suite.Require().Len(events, 1)
	suite.Equal("read", events[0].Payload["trigger"])
	suite.Equal(suite.clock.Now().UTC().Format(time.RFC3339), events[0].Payload["expired_at"])

	// A sweep afterwards finds nothing left to do.
	n, err := suite.lifecycle.SweepExpired(ctx)
	suite.Require().NoError(err)
	suite.Equal(0, n)

	_, err = suite.query.GetByPublicID(ctx, "q_missing")
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *QuoteLifecycleTestSuite) TestListRecent_Paginates() {
	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, suite.seed(domain.StatusAwaitingPayment).PublicID)
		suite.clock.Advance(time.Second)
	}

	page, err := suite.query.ListRecent(ctx, dto.ListQuotesParams{Limit: 2})
	suite.Require().NoError(err)
	suite.Require().Len(page.Quotes, 2)
	suite.Equal(ids[2], page.Quotes[0].PublicID)
	suite.Equal(ids[1], page.Quotes[1].PublicID)
	suite.Require().NotNil(page.NextToken)

	page, err = suite.query.ListRecent(ctx, dto.ListQuotesParams{Limit: 2, NextToken: *page.NextToken})
	suite.Require().NoError(err)
	suite.Require().Len(page.Quotes, 1)
	suite.Equal(ids[0], page.Quotes[0].PublicID)
	suite.Nil(page.NextToken)

	_, err = suite.query.ListRecent(ctx, dto.ListQuotesParams{Limit: 2, NextToken: "%%%"})
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *QuoteLifecycleTestSuite) TestListEvents_Ascending() {
	ctx := context.Background()
	q := suite.seed(domain.StatusAwaitingPayment)
	_, err := suite.lifecycle.AttachPayout(ctx, q.PublicID, solPayout)
	suite.Require().NoError(err)
	_, err = suite.lifecycle.ReportUserPaid(ctx, q.PublicID, "0xin")
	suite.Require().NoError(err)

	events, err := suite.query.ListEvents(ctx, q.PublicID)
	suite.Require().NoError(err)
	suite.Require().Len(events, 2)
	suite.Equal(domain.EventPayoutAttached, events[0].Type)
	suite.Equal(domain.EventUserPaid, events[1].Type)

	_, err = suite.query.ListEvents(ctx, "q_missing")
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

// The full happy path, driven through every service with one clock.
func TestQuoteFlow_EndToEnd(t *testing.T) {
	ctx := context.Background()
	repo := newMemQuoteRepo()
	clock := newFakeClock()
	feed := &fakeFeed{prices: map[string]decimal.Decimal{"tether": dec("1"), "solana": dec("150")}}
	hub := services.NewQuoteHub(nil, nil)

	received := make(chan domain.Quote, 16)
	opts := []services.ServiceOption{services.WithClock(clock.Now), services.WithNotifier(hub)}
	prices := services.NewPriceService(feed, nil, services.PriceCacheConfig{}, opts...)
	engine := services.NewQuoteService(repo, prices, testCatalog(), 0, opts...)
	lifecycle := services.NewQuoteLifecycleService(repo, opts...)
	query := services.NewQuoteQueryService(repo, opts...)

	q, err := engine.CreateQuote(ctx, dto.CreateQuoteRequest{BaseSymbol: "USDT", QuoteSymbol: "SOL", Chain: "ethereum", AmountIn: amount("100")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	unsubscribe := hub.Subscribe(q.PublicID, func(u domain.Quote) { received <- u })
	defer unsubscribe()

	steps := []func() (*domain.Quote, error){
		func() (*domain.Quote, error) { return lifecycle.AttachPayout(ctx, q.PublicID, solPayout) },
		func() (*domain.Quote, error) { return lifecycle.ReportUserPaid(ctx, q.PublicID, "0xin") },
		func() (*domain.Quote, error) {
			return lifecycle.ApplySettlementSignal(ctx, q.PublicID, dto.SettlementSignalRequest{Status: domain.StatusConfirming})
		},
		func() (*domain.Quote, error) {
			return lifecycle.ApplySettlementSignal(ctx, q.PublicID, dto.SettlementSignalRequest{Status: domain.StatusSuccess, TxOutHash: strPtr("5xOut")})
		},
	}
	want := []domain.QuoteStatus{domain.StatusAwaitingPayment, domain.StatusAwaitingReview, domain.StatusConfirming, domain.StatusSuccess}
	for i, step := range steps {
		clock.Advance(time.Minute)
		got, err := step()
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if got.Status != want[i] {
			t.Fatalf("step %d: status %s, want %s", i, got.Status, want[i])
		}
		select {
		case u := <-received:
			if u.Status != want[i] {
				t.Fatalf("step %d: notified %s, want %s", i, u.Status, want[i])
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("step %d: no notification", i)
		}
	}

	// Long after settlement the quote stays successful; reads do not expire it.
	clock.Advance(time.Hour)
	final, err := query.GetByPublicID(ctx, q.PublicID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.Status != domain.StatusSuccess {
		t.Fatalf("final status %s", final.Status)
	}

	events, _ := query.ListEvents(ctx, q.PublicID)
	var types []string
	for _, ev := range events {
		types = append(types, string(ev.Type))
	}
	if fmt.Sprint(types) != "[CREATED PAYOUT_ATTACHED USER_PAID SETTLEMENT_SIGNAL SETTLEMENT_SIGNAL]" {
		t.Fatalf("unexpected events %v", types)
	}
}
