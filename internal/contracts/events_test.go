package contracts

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bladeScope/internal/model"
)

func TestDecodeTransfer(t *testing.T) {
	topic, err := TransferTopic()
	require.NoError(t, err)
	assert.Equal(t, "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef", topic.Hex())

	from := common.HexToAddress("0x01")
	to := common.HexToAddress("0x02")
	log := types.Log{
		Topics: []common.Hash{topic, common.BytesToHash(from.Bytes()), common.BytesToHash(to.Bytes())},
		Data:   common.LeftPadBytes(big.NewInt(100).Bytes(), 32),
	}
	transfer, err := DecodeTransfer(log)
	require.NoError(t, err)
	assert.Equal(t, from, transfer.From)
	assert.Equal(t, to, transfer.To)
	assert.Equal(t, int64(100), transfer.Value.Int64())

	log.Topics[0] = common.HexToHash("0x1234")
	_, err = DecodeTransfer(log)
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestDecodeQuestEvent(t *testing.T) {
	parsed := MustABI(QuestsABI())
	log := types.Log{
		Topics: []common.Hash{
			parsed.Events["QuestComplete"].ID,
			common.BigToHash(big.NewInt(42)),
			common.BigToHash(big.NewInt(1001)),
		},
		BlockNumber: 77,
		TxHash:      common.HexToHash("0xabc"),
	}
	event, err := DecodeQuestEvent(log)
	require.NoError(t, err)
	assert.Equal(t, model.QuestComplete, event.Kind)
	assert.Equal(t, uint64(42), event.QuestID)
	assert.Equal(t, uint64(1001), event.Character)
	assert.Equal(t, uint64(77), event.Block)

	topics, err := QuestTopics()
	require.NoError(t, err)
	assert.Len(t, topics, 4)
	assert.Contains(t, topics, parsed.Events["WeeklyRewardClaimed"].ID)

	_, err = DecodeQuestEvent(types.Log{Topics: []common.Hash{common.HexToHash("0x01")}})
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestDecodeDuelEvent(t *testing.T) {
	parsed := MustABI(PvPABI())
	event := parsed.Events["DuelFinished"]
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(1700000000), big.NewInt(812), big.NewInt(790), true, big.NewInt(2))
	require.NoError(t, err)

	log := types.Log{
		Topics:      []common.Hash{event.ID, common.BigToHash(big.NewInt(11)), common.BigToHash(big.NewInt(22))},
		Data:        data,
		BlockNumber: 5,
	}
	duel, err := DecodeDuelEvent(log)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), duel.Attacker)
	assert.Equal(t, uint64(22), duel.Defender)
	assert.Equal(t, uint64(812), duel.AttackerRoll)
	assert.Equal(t, uint64(790), duel.DefenderRoll)
	assert.True(t, duel.AttackerWon)
	assert.Equal(t, uint64(2), duel.BonusRank)
}
