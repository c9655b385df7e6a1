package market

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bladeScope/internal/model"
)

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	matcher, err := NewMatcher(testAddresses())
	require.NoError(t, err)
	return matcher
}

func TestMatcherTableComesFromABI(t *testing.T) {
	ops := newTestMatcher(t).Operations()
	require.Len(t, ops, 4)

	effects := make(map[string]model.EffectKind)
	for _, op := range ops {
		assert.NotEqual(t, [4]byte{}, op.Selector, op.Method)
		effects[op.Method] = op.Effect
	}
	assert.Equal(t, model.EffectList, effects["addListing"])
	assert.Equal(t, model.EffectRelist, effects["changeListingPrice"])
	assert.Equal(t, model.EffectSell, effects["purchaseListing"])
	assert.Equal(t, model.EffectBurnPurchase, effects["purchaseBurnCharacter"])
}

func TestMatchListing(t *testing.T) {
	matcher := newTestMatcher(t)
	tx := marketTx(1, marketAddr, packMarket(t, "addListing", weaponsAddr, big.NewInt(77), big.NewInt(500), common.Address{}))

	intent, err := matcher.Match(tx, 100)
	require.NoError(t, err)
	require.NotNil(t, intent)
	assert.Equal(t, model.EffectList, intent.Effect)
	assert.Equal(t, model.EntityWeapon, intent.EntityKind)
	assert.Equal(t, weaponsAddr, intent.Token)
	assert.Equal(t, int64(77), intent.EntityID.Int64())
	assert.Equal(t, int64(500), intent.StatedPrice.Int64())
	assert.Equal(t, uint64(100), intent.Block)
	assert.Equal(t, tx.Hash(), intent.TxHash)
	assert.False(t, intent.HasTargetBuyer())
}

func TestMatchPrivateListingCarriesTargetBuyer(t *testing.T) {
	matcher := newTestMatcher(t)
	tx := marketTx(1, marketAddr, packMarket(t, "addListing", shieldsAddr, big.NewInt(3), big.NewInt(10), buyerAddr))

	intent, err := matcher.Match(tx, 100)
	require.NoError(t, err)
	require.NotNil(t, intent)
	assert.True(t, intent.HasTargetBuyer())
	assert.Equal(t, buyerAddr, *intent.TargetBuyer)
}

func TestMatchRelistAndPurchase(t *testing.T) {
	matcher := newTestMatcher(t)

	relist, err := matcher.Match(marketTx(1, marketAddr, packMarket(t, "changeListingPrice", charactersAddr, big.NewInt(5), big.NewInt(42))), 7)
	require.NoError(t, err)
	require.NotNil(t, relist)
	assert.Equal(t, model.EffectRelist, relist.Effect)
	assert.Equal(t, model.EntityCharacter, relist.EntityKind)
	assert.Equal(t, int64(42), relist.StatedPrice.Int64())

	sell, err := matcher.Match(marketTx(2, marketAddr, packMarket(t, "purchaseListing", shieldsAddr, big.NewInt(6), big.NewInt(99))), 7)
	require.NoError(t, err)
	require.NotNil(t, sell)
	assert.Equal(t, model.EffectSell, sell.Effect)
	assert.Equal(t, model.EntityShield, sell.EntityKind)
}

func TestMatchBurnPurchaseHasNoTokenArgument(t *testing.T) {
	matcher := newTestMatcher(t)
	data := packMarket(t, "purchaseBurnCharacter", big.NewInt(12), big.NewInt(300))
	require.False(t, bytes.Contains(data, charactersAddr.Bytes()))

	intent, err := matcher.Match(marketTx(1, marketAddr, data), 9)
	require.NoError(t, err)
	require.NotNil(t, intent)
	assert.Equal(t, model.EffectBurnPurchase, intent.Effect)
	assert.Equal(t, model.EntityCharacter, intent.EntityKind)
	assert.Equal(t, charactersAddr, intent.Token)
}

func TestMatchIgnoresUntrackedTransactions(t *testing.T) {
	matcher := newTestMatcher(t)

	cases := map[string][]byte{
		"unknown selector": append([]byte{0xde, 0xad, 0xbe, 0xef}, make([]byte, 64)...),
		"short data":       {0x01, 0x02},
		"untracked token":  packMarket(t, "purchaseListing", strangerAddr, big.NewInt(1), big.NewInt(1)),
	}
	for name, data := range cases {
		intent, err := matcher.Match(marketTx(1, marketAddr, data), 1)
		assert.NoError(t, err, name)
		assert.Nil(t, intent, name)
	}

	otherContract := marketTx(1, strangerAddr, packMarket(t, "purchaseListing", weaponsAddr, big.NewInt(1), big.NewInt(1)))
	intent, err := matcher.Match(otherContract, 1)
	assert.NoError(t, err)
	assert.Nil(t, intent)
}

func TestMatchMalformedCall(t *testing.T) {
	matcher := newTestMatcher(t)
	data := packMarket(t, "purchaseListing", weaponsAddr, big.NewInt(1), big.NewInt(1))

	intent, err := matcher.Match(marketTx(1, marketAddr, data[:4+32+16]), 1)
	assert.ErrorIs(t, err, ErrMalformedCall)
	assert.Nil(t, intent)
}
