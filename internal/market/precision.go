package market

import (
	"math"
	"strconv"
	"strings"
)

var fiveDecimalPairs = map[string]bool{
	"EURUSD": true,
	"GBPUSD": true,
	"USDCHF": true,
	"AUDUSD": true,
	"USDCAD": true,
	"NZDUSD": true,
}

// PricePrecision returns the number of decimal places used when quoting
// the given instrument. JPY-quoted pairs use 3, standard forex majors 5,
// and indices/commodities/crypto 2.
func PricePrecision(symbol string) int {
	normalized := strings.ToUpper(strings.ReplaceAll(symbol, "/", ""))
	if strings.HasSuffix(normalized, "JPY") {
		return 3
	}
	if fiveDecimalPairs[normalized] {
		return 5
	}
	return 2
}

// RoundPrice rounds a price to the instrument's quoting precision.
func RoundPrice(symbol string, price float64) float64 {
	scale := math.Pow(10, float64(PricePrecision(symbol)))
	return math.Round(price*scale) / scale
}

// FormatPrice renders a price at the instrument's quoting precision.
func FormatPrice(symbol string, price float64) string {
	return strconv.FormatFloat(price, 'f', PricePrecision(symbol), 64)
}
