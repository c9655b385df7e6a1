package market

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"bladeScope/internal/contracts"
	"bladeScope/internal/model"
)

var (
	marketAddr     = common.HexToAddress("0x90099dA42806b21128A094C713347C7885aF79e2")
	charactersAddr = common.HexToAddress("0xc6F252c2CdD4087e30608A35c022ce490B58179b")
	weaponsAddr    = common.HexToAddress("0x7E091b0a220356B157131c831258A9C98aC8408A")
	shieldsAddr    = common.HexToAddress("0xf9E9F6019631bBE7db1B71Ec4262778eb6C3c520")
	tokenAddr      = common.HexToAddress("0x154A9F9cbd3449AD22FDaE23044319D6eF2a1Fab")
	gameAddr       = common.HexToAddress("0x39Bea96e13453Ed52A734B6ACEeD4c41F57B2271")
	strangerAddr   = common.HexToAddress("0x00000000000000000000000000000000000bEEF1")
	buyerAddr      = common.HexToAddress("0x00000000000000000000000000000000000000B0")
	sellerAddr     = common.HexToAddress("0x00000000000000000000000000000000000000C0")
)

func testAddresses() model.Addresses {
	return model.Addresses{
		model.RoleMarket:     marketAddr,
		model.RoleCharacters: charactersAddr,
		model.RoleWeapons:    weaponsAddr,
		model.RoleShields:    shieldsAddr,
		model.RoleToken:      tokenAddr,
		model.RoleGame:       gameAddr,
	}
}

func packMarket(t *testing.T, method string, args ...interface{}) []byte {
	t.Helper()
	data, err := contracts.MustABI(contracts.MarketABI()).Pack(method, args...)
	require.NoError(t, err)
	return data
}

func marketTx(nonce uint64, to common.Address, data []byte) *types.Transaction {
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      300000,
		GasPrice: big.NewInt(5_000_000_000),
		Data:     data,
	})
}

func transferLog(token, from, to common.Address, amount int64) *types.Log {
	topic, _ := contracts.TransferTopic()
	return &types.Log{
		Address: token,
		Topics:  []common.Hash{topic, common.BytesToHash(from.Bytes()), common.BytesToHash(to.Bytes())},
		Data:    common.LeftPadBytes(big.NewInt(amount).Bytes(), 32),
	}
}

func successReceipt(tx *types.Transaction, height uint64, logs ...*types.Log) *types.Receipt {
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		BlockNumber: new(big.Int).SetUint64(height),
		Logs:        logs,
	}
}
