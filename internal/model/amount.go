package model

import (
	"math/big"
	"strings"
)

// displayFractionDigits is the number of fractional digits kept when
// rendering planck amounts for humans. Truncated, never rounded.
const displayFractionDigits = 4

// FormatPlanck renders a planck amount as a decimal string using the chain's
// token decimals, truncated to four fractional digits.
func FormatPlanck(planck *big.Int, decimals uint32) string {
	if planck == nil {
		planck = new(big.Int)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(planck, scale, new(big.Int))
	frac.Abs(frac)

	digits := frac.String()
	if pad := int(decimals) - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}
	if len(digits) < displayFractionDigits {
		digits += strings.Repeat("0", displayFractionDigits-len(digits))
	}

	return whole.String() + "." + digits[:displayFractionDigits]
}

// FormatAmount renders a planck amount with the token symbol appended.
func FormatAmount(planck *big.Int, decimals uint32, symbol string) string {
	formatted := FormatPlanck(planck, decimals)
	if symbol == "" {
		return formatted
	}
	return formatted + " " + symbol
}
