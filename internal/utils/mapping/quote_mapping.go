package mapping

import (
	"encoding/json"
	"fmt"

	"github.com/SscSPs/swap_exchange_app/internal/core/domain"
	"github.com/SscSPs/swap_exchange_app/internal/models"
	"github.com/shopspring/decimal"
)

// ToModelQuote converts a domain Quote to a model Quote
func ToModelQuote(d domain.Quote) models.Quote {
	return models.Quote{
		QuoteID:        d.ID,
		PublicID:       d.PublicID,
		BaseSymbol:     d.BaseSymbol,
		QuoteSymbol:    d.QuoteSymbol,
		Chain:          d.Chain,
		AmountIn:       d.AmountIn,
		Rate:           d.Rate,
		AmountOut:      d.AmountOut,
		DepositAddress: d.DepositAddress,
		PayoutAddress:  d.PayoutAddress,
		Status:         string(d.Status),
		ExpiresAt:      d.ExpiresAt,
		TxInHash:       d.TxInHash,
		TxOutHash:      d.TxOutHash,
		AuditFields:    ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainQuote converts a model Quote to a domain Quote
func ToDomainQuote(m models.Quote) domain.Quote {
	return domain.Quote{
		ID:             m.QuoteID,
		PublicID:       m.PublicID,
		BaseSymbol:     m.BaseSymbol,
		QuoteSymbol:    m.QuoteSymbol,
		Chain:          m.Chain,
		AmountIn:       m.AmountIn,
		Rate:           m.Rate,
		AmountOut:      m.AmountOut,
		DepositAddress: m.DepositAddress,
		PayoutAddress:  m.PayoutAddress,
		Status:         domain.QuoteStatus(m.Status),
		ExpiresAt:      m.ExpiresAt.UTC(),
		TxInHash:       m.TxInHash,
		TxOutHash:      m.TxOutHash,
		AuditFields: domain.AuditFields{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
	}
}

// ToDomainQuoteSlice converts a slice of model Quotes to domain Quotes
func ToDomainQuoteSlice(ms []models.Quote) []domain.Quote {
	ds := make([]domain.Quote, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainQuote(m)
	}
	return ds
}

// ToModelQuoteEvent converts a domain QuoteEvent to a model QuoteEvent, encoding the payload as JSON.
func ToModelQuoteEvent(d domain.QuoteEvent) (models.QuoteEvent, error) {
	payload := d.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return models.QuoteEvent{}, fmt.Errorf("failed to encode %s event payload: %w", d.Type, err)
	}
	return models.QuoteEvent{
		EventID:   d.ID,
		QuoteID:   d.QuoteID,
		PublicID:  d.PublicID,
		EventType: string(d.Type),
		Payload:   raw,
		CreatedAt: d.CreatedAt,
	}, nil
}

// ToDomainQuoteEvent converts a model QuoteEvent to a domain QuoteEvent.
func ToDomainQuoteEvent(m models.QuoteEvent) (domain.QuoteEvent, error) {
	payload := map[string]any{}
	if len(m.Payload) > 0 {
		if err := json.Unmarshal(m.Payload, &payload); err != nil {
			return domain.QuoteEvent{}, fmt.Errorf("failed to decode event %d payload: %w", m.EventID, err)
		}
	}
	return domain.QuoteEvent{
		ID:        m.EventID,
		QuoteID:   m.QuoteID,
		PublicID:  m.PublicID,
		Type:      domain.QuoteEventType(m.EventType),
		Payload:   payload,
		CreatedAt: m.CreatedAt.UTC(),
	}, nil
}

// ToModelPriceSnapshot converts a domain PriceSnapshot to its persisted form.
// Prices are stored as decimal strings to keep full precision.
func ToModelPriceSnapshot(d domain.PriceSnapshot) (models.PriceSnapshot, error) {
	prices := make(map[string]string, len(d.Prices))
	for id, p := range d.Prices {
		prices[id] = p.String()
	}
	raw, err := json.Marshal(prices)
	if err != nil {
		return models.PriceSnapshot{}, fmt.Errorf("failed to encode price snapshot: %w", err)
	}
	return models.PriceSnapshot{
		Source:    d.Source,
		Payload:   raw,
		FetchedAt: d.FetchedAt,
	}, nil
}

// ToDomainPriceSnapshot converts a persisted snapshot back to the domain form.
func ToDomainPriceSnapshot(m models.PriceSnapshot) (domain.PriceSnapshot, error) {
	raw := map[string]string{}
	if err := json.Unmarshal(m.Payload, &raw); err != nil {
		return domain.PriceSnapshot{}, fmt.Errorf("failed to decode price snapshot %d: %w", m.SnapshotID, err)
	}
	prices := make(map[string]decimal.Decimal, len(raw))
	for id, s := range raw {
		p, err := decimal.NewFromString(s)
		if err != nil {
			return domain.PriceSnapshot{}, fmt.Errorf("invalid price %q for %s in snapshot %d: %w", s, id, m.SnapshotID, err)
		}
		prices[id] = p
	}
	return domain.PriceSnapshot{
		Prices:    prices,
		FetchedAt: m.FetchedAt.UTC(),
		Source:    m.Source,
	}, nil
}
