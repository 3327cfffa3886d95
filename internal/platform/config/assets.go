package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// defaultPriceIDs maps trading symbols to CoinGecko ids. Chain-qualified
// stablecoins share one price id.
var defaultPriceIDs = map[string]string{
	"BTC":       "bitcoin",
	"ETH":       "ethereum",
	"SOL":       "solana",
	"USDT":      "tether",
	"USDT-ETH":  "tether",
	"USDT-TRON": "tether",
	"USDT-SOL":  "tether",
	"USDC":      "usd-coin",
	"USDC-ETH":  "usd-coin",
	"USDC-SOL":  "usd-coin",
	"BNB":       "binancecoin",
	"MATIC":     "matic-network",
	"AVAX":      "avalanche-2",
	"ADA":       "cardano",
	"DOGE":      "dogecoin",
	"XRP":       "ripple",
}

// DepositEnvKey returns the environment variable holding the deposit address for symbol.
func DepositEnvKey(symbol string) string {
	return "DEPOSIT_ADDR_" + strings.ReplaceAll(strings.ToUpper(symbol), "-", "_")
}

// priceIDs returns the default symbol map with "SYM:id,SYM:id" overrides applied.
func priceIDs(overrides string) map[string]string {
	ids := make(map[string]string, len(defaultPriceIDs))
	for sym, id := range defaultPriceIDs {
		ids[sym] = id
	}
	for _, pair := range splitList(overrides) {
		sym, id, ok := strings.Cut(pair, ":")
		sym, id = strings.ToUpper(strings.TrimSpace(sym)), strings.TrimSpace(id)
		if !ok || sym == "" {
			log.Printf("Warning: Ignoring malformed PRICE_ID_OVERRIDES entry '%s'.\n", pair)
			continue
		}
		if id == "" {
			delete(ids, sym)
			continue
		}
		ids[sym] = id
	}
	return ids
}

// depositAddresses reads DEPOSIT_ADDR_<SYMBOL> for every known symbol.
func depositAddresses(ids map[string]string) map[string]string {
	addrs := make(map[string]string)
	for sym := range ids {
		key := DepositEnvKey(sym)
		_ = viper.BindEnv(key)
		if addr := strings.TrimSpace(viper.GetString(key)); addr != "" {
			addrs[sym] = addr
		}
	}
	if len(addrs) == 0 {
		log.Println("Warning: No DEPOSIT_ADDR_* variables set. Quote creation will reject every asset.")
	}
	return addrs
}
