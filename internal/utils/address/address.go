// Package address checks payout addresses against the format of their asset family.
// Checks are structural (charset, length, checksum); they never touch a chain.
package address

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/SscSPs/swap_exchange_app/internal/apperrors"
	"github.com/SscSPs/swap_exchange_app/internal/core/domain"
	"github.com/btcsuite/btcutil/base58"
	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common"
)

const (
	btcP2PKHVersion  = 0x00
	btcP2SHVersion   = 0x05
	tronVersion      = 0x41
	minFallbackLen   = 10
	solanaKeyLen     = 32
	hash160Len       = 20
	bitcoinHRP       = "bc"
	taprootPrefix    = "bc1p"
	segwitV0Prefix   = "bc1q"
	solanaMinChars   = 32
	solanaMaxChars   = 44
	fallbackMaxChars = 128
)

// witness v1 uses bech32m, which the bech32 package does not checksum; charset only.
var taprootPattern = regexp.MustCompile(`^bc1p[02-9ac-hj-np-z]{58}$`)

// Validate returns nil when addr is plausible for family, otherwise an error
// wrapping apperrors.ErrInvalidAddress.
func Validate(family domain.AddressFamily, addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return fmt.Errorf("%w: address is empty", apperrors.ErrInvalidAddress)
	}

	var ok bool
	switch family {
	case domain.FamilyEVM:
		ok = isEVM(addr)
	case domain.FamilySolana:
		ok = isSolana(addr)
	case domain.FamilyBitcoin:
		ok = isBitcoin(addr)
	case domain.FamilyTron:
		ok = isBase58Check(addr, tronVersion)
	default:
		ok = len(addr) >= minFallbackLen && len(addr) <= fallbackMaxChars && !strings.ContainsAny(addr, " \t\n")
	}
	if !ok {
		return fmt.Errorf("%w: %q is not a valid %s address", apperrors.ErrInvalidAddress, addr, family)
	}
	return nil
}

// ValidateForSymbol validates addr against the family of the receiving symbol.
func ValidateForSymbol(symbol, addr string) error {
	return Validate(domain.FamilyForSymbol(symbol), addr)
}

func isEVM(addr string) bool {
	return strings.HasPrefix(addr, "0x") && common.IsHexAddress(addr)
}

func isSolana(addr string) bool {
	if len(addr) < solanaMinChars || len(addr) > solanaMaxChars {
		return false
	}
	return len(base58.Decode(addr)) == solanaKeyLen
}

func isBitcoin(addr string) bool {
	lower := strings.ToLower(addr)
	switch {
	case strings.HasPrefix(lower, taprootPrefix):
		return taprootPattern.MatchString(lower)
	case strings.HasPrefix(lower, segwitV0Prefix):
		hrp, data, err := bech32.Decode(addr)
		return err == nil && hrp == bitcoinHRP && len(data) > 0
	}
	return isBase58Check(addr, btcP2PKHVersion) || isBase58Check(addr, btcP2SHVersion)
}

func isBase58Check(addr string, version byte) bool {
	payload, v, err := base58.CheckDecode(addr)
	return err == nil && v == version && len(payload) == hash160Len
}
