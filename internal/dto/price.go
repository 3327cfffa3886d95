package dto

import (
	"github.com/shopspring/decimal"
)

// GetPricesParams are the query parameters of GET /prices.
type GetPricesParams struct {
	IDs string `form:"ids" binding:"required,max=512"`
}

// PricesResponse maps price-feed ids to USD prices. Unknown ids are omitted.
type PricesResponse struct {
	USD map[string]decimal.Decimal `json:"usd"`
}
