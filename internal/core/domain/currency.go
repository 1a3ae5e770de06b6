package domain

import "fmt"

// Currency is a closed set of supported money units. Fiat and crypto codes
// are treated uniformly as opaque units; no conversion happens anywhere.
type Currency string

const (
	CurrencyBGN Currency = "BGN"
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
	CurrencyBTC Currency = "BTC"
	CurrencyETH Currency = "ETH"
)

// Currencies lists every supported currency.
func Currencies() []Currency {
	return []Currency{CurrencyBGN, CurrencyEUR, CurrencyUSD, CurrencyGBP, CurrencyBTC, CurrencyETH}
}

// IsValid reports whether c is one of the supported currencies.
func (c Currency) IsValid() bool {
	switch c {
	case CurrencyBGN, CurrencyEUR, CurrencyUSD, CurrencyGBP, CurrencyBTC, CurrencyETH:
		return true
	}
	return false
}

// ParseCurrency converts a raw string into a Currency.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(s)
	if !c.IsValid() {
		return "", fmt.Errorf("unsupported currency %q", s)
	}
	return c, nil
}
