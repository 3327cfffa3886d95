package domain

import (
	"sort"
	"strings"
)

// AddressFamily groups receiving assets that share a payout address format.
type AddressFamily string

const (
	FamilyEVM     AddressFamily = "evm"
	FamilySolana  AddressFamily = "solana"
	FamilyBitcoin AddressFamily = "bitcoin"
	FamilyTron    AddressFamily = "tron"
	FamilyOther   AddressFamily = "other"
)

var evmSymbols = map[string]struct{}{
	"ETH": {}, "USDT": {}, "USDC": {}, "ARB": {}, "OP": {}, "MATIC": {},
	"BNB": {}, "AVAX": {}, "BASE": {}, "FTM": {}, "CRO": {},
}

// NormalizeSymbol upper-cases and trims a trading symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// FamilyForSymbol resolves the payout address family for a receiving symbol.
// Chain-qualified symbols ("USDT-SOL") use their network suffix.
func FamilyForSymbol(symbol string) AddressFamily {
	symbol = NormalizeSymbol(symbol)
	if idx := strings.LastIndex(symbol, "-"); idx >= 0 {
		switch symbol[idx+1:] {
		case "ETH", "ARB", "OP", "BASE", "BSC", "POLYGON":
			return FamilyEVM
		case "SOL":
			return FamilySolana
		case "TRON", "TRX":
			return FamilyTron
		}
		symbol = symbol[:idx]
	}
	switch symbol {
	case "SOL":
		return FamilySolana
	case "BTC":
		return FamilyBitcoin
	}
	if _, ok := evmSymbols[symbol]; ok {
		return FamilyEVM
	}
	return FamilyOther
}

// Asset describes one tradable symbol.
type Asset struct {
	Symbol         string        `json:"symbol"`
	PriceID        string        `json:"priceId"`
	DepositAddress string        `json:"-"`
	Family         AddressFamily `json:"family"`
}

// CanDeposit reports whether users can send this asset to the desk.
func (a Asset) CanDeposit() bool {
	return a.DepositAddress != ""
}

// AssetCatalog maps trading symbols to price-feed ids and deposit addresses.
// It is built once from configuration and is read-only afterwards.
type AssetCatalog struct {
	assets map[string]Asset
}

// NewAssetCatalog builds a catalog from symbol→price id and symbol→deposit address maps.
func NewAssetCatalog(priceIDs map[string]string, depositAddresses map[string]string) *AssetCatalog {
	assets := make(map[string]Asset, len(priceIDs))
	for symbol, id := range priceIDs {
		symbol = NormalizeSymbol(symbol)
		assets[symbol] = Asset{
			Symbol:  symbol,
			PriceID: strings.TrimSpace(id),
			Family:  FamilyForSymbol(symbol),
		}
	}
	for symbol, addr := range depositAddresses {
		symbol = NormalizeSymbol(symbol)
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		a, ok := assets[symbol]
		if !ok {
			a = Asset{Symbol: symbol, Family: FamilyForSymbol(symbol)}
		}
		a.DepositAddress = addr
		assets[symbol] = a
	}
	return &AssetCatalog{assets: assets}
}

// Lookup returns the asset for symbol.
func (c *AssetCatalog) Lookup(symbol string) (Asset, bool) {
	a, ok := c.assets[NormalizeSymbol(symbol)]
	return a, ok
}

// PriceID returns the canonical price-feed id for symbol.
func (c *AssetCatalog) PriceID(symbol string) (string, bool) {
	a, ok := c.Lookup(symbol)
	if !ok || a.PriceID == "" {
		return "", false
	}
	return a.PriceID, true
}

// DepositAddress returns the configured deposit address for symbol.
func (c *AssetCatalog) DepositAddress(symbol string) (string, bool) {
	a, ok := c.Lookup(symbol)
	if !ok || !a.CanDeposit() {
		return "", false
	}
	return a.DepositAddress, true
}

// PriceIDs returns the distinct price ids in the catalog, sorted.
func (c *AssetCatalog) PriceIDs() []string {
	seen := make(map[string]struct{}, len(c.assets))
	ids := make([]string, 0, len(c.assets))
	for _, a := range c.assets {
		if a.PriceID == "" {
			continue
		}
		if _, dup := seen[a.PriceID]; dup {
			continue
		}
		seen[a.PriceID] = struct{}{}
		ids = append(ids, a.PriceID)
	}
	sort.Strings(ids)
	return ids
}

// Assets returns every asset sorted by symbol.
func (c *AssetCatalog) Assets() []Asset {
	out := make([]Asset, 0, len(c.assets))
	for _, a := range c.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
