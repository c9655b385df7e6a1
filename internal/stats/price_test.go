package stats

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBuyerPrice(t *testing.T) {
	quarter := new(big.Int).Lsh(big.NewInt(1), 62)

	got := BuyerPrice(quarter, big.NewInt(1000))
	assert.Equal(t, "1251", got.String())

	got = BuyerPrice(big.NewInt(0), big.NewInt(1000))
	assert.Equal(t, "1001", got.String())

	high := new(big.Int).Lsh(big.NewInt(1), 128)
	high.Add(high, big.NewInt(8))
	want := new(big.Int).Lsh(big.NewInt(1), 128)
	want.Add(want, big.NewInt(8+2+1))
	want.Add(want, quarter)
	assert.Equal(t, want.String(), BuyerPrice(quarter, high).String())
}

func TestToDisplay(t *testing.T) {
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, "1.5", ToDisplay(wei, 18).String())
	assert.True(t, ToDisplay(nil, 18).IsZero())
	assert.Equal(t, "12.34", ToDisplay(big.NewInt(1234), 2).String())
}

func TestRatioGuardsZero(t *testing.T) {
	assert.True(t, Ratio(decimal.NewFromInt(5), decimal.Zero).IsZero())
	assert.Equal(t, "2.5", Ratio(decimal.NewFromInt(5), decimal.NewFromInt(2)).String())
}
