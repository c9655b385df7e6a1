package stats

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// PowerDecimals is the fixed-point scale of gear power values.
const PowerDecimals = 18

var mask128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// BuyerPrice applies the 64.64 fixed-point market tax to a seller price, plus one unit.
func BuyerPrice(tax, price *big.Int) *big.Int {
	lo := new(big.Int).And(price, mask128)
	lo.Mul(lo, tax)
	lo.Rsh(lo, 64)

	hi := new(big.Int).Rsh(price, 128)
	hi.Mul(hi, tax)

	out := new(big.Int).Add(price, lo)
	out.Add(out, hi)
	return out.Add(out, big.NewInt(1))
}

// ToDisplay scales an integer on-chain amount down by decimals.
func ToDisplay(amount *big.Int, decimals int32) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -decimals)
}

// Ratio divides num by den, returning 0 for a zero denominator.
func Ratio(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den)
}
