package units

import (
	"math/big"
	"strings"
)

// Format renders amount / 10^decimals as a decimal string without trailing zeros.
func Format(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	if decimals <= 0 {
		return amount.String()
	}

	r := new(big.Rat).SetFrac(amount, pow10(decimals))
	s := r.FloatString(decimals)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "-" || s == "-0" {
		return "0"
	}
	return s
}

// Float returns amount / 10^decimals as a float64.
func Float(amount *big.Int, decimals int) float64 {
	if amount == nil {
		return 0
	}
	f, _ := new(big.Rat).SetFrac(amount, pow10(decimals)).Float64()
	return f
}

func pow10(decimals int) *big.Int {
	if decimals < 0 {
		decimals = 0
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}
