package dto

import (
	"time"

	"github.com/SscSPs/swap_exchange_app/internal/core/domain"
	"github.com/SscSPs/swap_exchange_app/internal/utils"
	"github.com/shopspring/decimal"
)

// CreateQuoteRequest is the body of POST /quotes.
// AmountIn accepts a JSON number or a decimal string.
type CreateQuoteRequest struct {
	BaseSymbol  string           `json:"baseSymbol" binding:"required,max=32"`
	QuoteSymbol string           `json:"quoteSymbol" binding:"required,max=32"`
	Chain       string           `json:"chain" binding:"required,max=32"`
	AmountIn    *decimal.Decimal `json:"amountIn" binding:"required"`
}

// AttachPayoutRequest is the body of PATCH /quotes/{publicId}/payout.
type AttachPayoutRequest struct {
	PayoutAddress string `json:"payoutAddress" binding:"required,max=128"`
}

// UserPaidRequest is the body of POST /quotes/{publicId}/paid.
type UserPaidRequest struct {
	TxInHash string `json:"txInHash" binding:"required,max=256"`
}

// SettlementSignalRequest is the body of POST /settlement/quotes/{publicId}/signal.
type SettlementSignalRequest struct {
	Status    domain.QuoteStatus `json:"status" binding:"required,settlementstatus"`
	TxInHash  *string            `json:"txInHash,omitempty" binding:"omitempty,max=256"`
	TxOutHash *string            `json:"txOutHash,omitempty" binding:"omitempty,max=256"`
}

// AdminSetStatusRequest is the body of PATCH /admin/quotes.
type AdminSetStatusRequest struct {
	PublicID  string             `json:"publicId" binding:"required"`
	Status    domain.QuoteStatus `json:"status" binding:"required,quotestatus"`
	TxInHash  *string            `json:"txInHash,omitempty" binding:"omitempty,max=256"`
	TxOutHash *string            `json:"txOutHash,omitempty" binding:"omitempty,max=256"`
	Note      string             `json:"note,omitempty" binding:"max=500"`
}

// ListQuotesParams are the query parameters of GET /admin/quotes.
type ListQuotesParams struct {
	Limit     int    `form:"limit,default=50" binding:"min=1,max=200"`
	NextToken string `form:"nextToken"`
}

// QuoteResponse is the API representation of a quote. Amounts are decimal strings
// at full precision; the *Display fields are rounded for presentation.
type QuoteResponse struct {
	PublicID         string             `json:"publicId"`
	BaseSymbol       string             `json:"baseSymbol"`
	QuoteSymbol      string             `json:"quoteSymbol"`
	Chain            string             `json:"chain"`
	AmountIn         decimal.Decimal    `json:"amountIn"`
	Rate             decimal.Decimal    `json:"rate"`
	AmountOut        decimal.Decimal    `json:"amountOut"`
	RateDisplay      string             `json:"rateDisplay"`
	AmountOutDisplay string             `json:"amountOutDisplay"`
	DepositAddress   string             `json:"depositAddress"`
	PayoutAddress    *string            `json:"payoutAddress"`
	Status           domain.QuoteStatus `json:"status"`
	ExpiresAt        time.Time          `json:"expiresAt"`
	TxInHash         *string            `json:"txInHash"`
	TxOutHash        *string            `json:"txOutHash"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

// ToQuoteResponse converts a domain.Quote to QuoteResponse DTO
func ToQuoteResponse(q *domain.Quote) QuoteResponse {
	return QuoteResponse{
		PublicID:         q.PublicID,
		BaseSymbol:       q.BaseSymbol,
		QuoteSymbol:      q.QuoteSymbol,
		Chain:            q.Chain,
		AmountIn:         q.AmountIn,
		Rate:             q.Rate,
		AmountOut:        q.AmountOut,
		RateDisplay:      utils.FormatRate(q.Rate),
		AmountOutDisplay: utils.FormatAmount(q.AmountOut),
		DepositAddress:   q.DepositAddress,
		PayoutAddress:    q.PayoutAddress,
		Status:           q.Status,
		ExpiresAt:        q.ExpiresAt,
		TxInHash:         q.TxInHash,
		TxOutHash:        q.TxOutHash,
		CreatedAt:        q.CreatedAt,
		UpdatedAt:        q.UpdatedAt,
	}
}

// ToQuoteResponseList converts a slice of domain quotes to response DTOs
func ToQuoteResponseList(quotes []domain.Quote) []QuoteResponse {
	res := make([]QuoteResponse, len(quotes))
	for i := range quotes {
		res[i] = ToQuoteResponse(&quotes[i])
	}
	return res
}

// ListQuotesResponse is the body of GET /admin/quotes.
type ListQuotesResponse struct {
	Quotes    []QuoteResponse `json:"quotes"`
	NextToken *string         `json:"nextToken,omitempty"`
}

// QuoteEventResponse is the API representation of an audit event.
type QuoteEventResponse struct {
	ID        int64          `json:"id"`
	PublicID  string         `json:"publicId"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ToQuoteEventResponseList converts domain events to response DTOs
func ToQuoteEventResponseList(events []domain.QuoteEvent) []QuoteEventResponse {
	res := make([]QuoteEventResponse, len(events))
	for i, ev := range events {
		res[i] = QuoteEventResponse{
			ID:        ev.ID,
			PublicID:  ev.PublicID,
			Type:      string(ev.Type),
			Payload:   ev.Payload,
			CreatedAt: ev.CreatedAt,
		}
	}
	return res
}

// SweepResponse is the body returned by POST /admin/quotes/sweep.
type SweepResponse struct {
	Expired int `json:"expired"`
}
