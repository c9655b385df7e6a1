package contracts

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"bladeScope/internal/model"
)

// ErrUnknownEvent is returned when a log's topic0 is not a decoded event.
var ErrUnknownEvent = errors.New("unknown event")

// Transfer is a decoded ERC20 Transfer log.
type Transfer struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

// TransferTopic returns the topic0 of the ERC20 Transfer event.
func TransferTopic() (common.Hash, error) {
	parsed, err := erc20ABI.get()
	if err != nil {
		return common.Hash{}, err
	}
	return parsed.Events["Transfer"].ID, nil
}

// DecodeTransfer decodes an ERC20 Transfer log.
func DecodeTransfer(log types.Log) (Transfer, error) {
	topic, err := TransferTopic()
	if err != nil {
		return Transfer{}, err
	}
	if len(log.Topics) != 3 || log.Topics[0] != topic {
		return Transfer{}, ErrUnknownEvent
	}
	parsed, _ := erc20ABI.get()
	values, err := parsed.Unpack("Transfer", log.Data)
	if err != nil {
		return Transfer{}, fmt.Errorf("unpack Transfer: %w", err)
	}
	value, err := asBigInt(values[0])
	if err != nil {
		return Transfer{}, fmt.Errorf("transfer value: %w", err)
	}
	return Transfer{
		From:  common.BytesToAddress(log.Topics[1].Bytes()),
		To:    common.BytesToAddress(log.Topics[2].Bytes()),
		Value: value,
	}, nil
}

// QuestTopics returns the topic0 filter for every decoded quests event.
func QuestTopics() ([]common.Hash, error) {
	parsed, err := questsABI.get()
	if err != nil {
		return nil, err
	}
	kinds := []model.QuestEventKind{model.QuestAssigned, model.QuestComplete, model.QuestSkipped, model.WeeklyRewardClaimed}
	out := make([]common.Hash, 0, len(kinds))
	for _, kind := range kinds {
		out = append(out, parsed.Events[string(kind)].ID)
	}
	return out, nil
}

// DecodeQuestEvent decodes a quests-contract log. Tier and User are left for the caller.
func DecodeQuestEvent(log types.Log) (model.QuestEvent, error) {
	parsed, err := questsABI.get()
	if err != nil {
		return model.QuestEvent{}, err
	}
	if len(log.Topics) == 0 {
		return model.QuestEvent{}, ErrUnknownEvent
	}
	event, err := parsed.EventByID(log.Topics[0])
	if err != nil {
		return model.QuestEvent{}, ErrUnknownEvent
	}
	if len(log.Topics) != 3 {
		return model.QuestEvent{}, fmt.Errorf("%s: expected 3 topics, got %d", event.Name, len(log.Topics))
	}
	out := model.QuestEvent{
		Kind:   model.QuestEventKind(event.Name),
		Block:  log.BlockNumber,
		TxHash: log.TxHash.Hex(),
	}
	if out.Kind == model.WeeklyRewardClaimed {
		out.User = common.BytesToAddress(log.Topics[1].Bytes()).Hex()
		return out, nil
	}
	out.QuestID = new(big.Int).SetBytes(log.Topics[1].Bytes()).Uint64()
	out.Character = new(big.Int).SetBytes(log.Topics[2].Bytes()).Uint64()
	return out, nil
}

// DuelTopic returns the topic0 of DuelFinished.
func DuelTopic() (common.Hash, error) {
	parsed, err := pvpABI.get()
	if err != nil {
		return common.Hash{}, err
	}
	return parsed.Events["DuelFinished"].ID, nil
}

// DecodeDuelEvent decodes a pvp DuelFinished log.
func DecodeDuelEvent(log types.Log) (model.DuelEvent, error) {
	topic, err := DuelTopic()
	if err != nil {
		return model.DuelEvent{}, err
	}
	if len(log.Topics) == 0 || log.Topics[0] != topic {
		return model.DuelEvent{}, ErrUnknownEvent
	}
	if len(log.Topics) != 3 {
		return model.DuelEvent{}, fmt.Errorf("DuelFinished: expected 3 topics, got %d", len(log.Topics))
	}
	parsed, _ := pvpABI.get()
	values, err := parsed.Unpack("DuelFinished", log.Data)
	if err != nil {
		return model.DuelEvent{}, fmt.Errorf("unpack DuelFinished: %w", err)
	}
	if len(values) != 5 {
		return model.DuelEvent{}, fmt.Errorf("DuelFinished: expected 5 values, got %d", len(values))
	}
	attackerRoll, err := asUint64(values[1])
	if err != nil {
		return model.DuelEvent{}, fmt.Errorf("attacker roll: %w", err)
	}
	defenderRoll, err := asUint64(values[2])
	if err != nil {
		return model.DuelEvent{}, fmt.Errorf("defender roll: %w", err)
	}
	won, ok := values[3].(bool)
	if !ok {
		return model.DuelEvent{}, fmt.Errorf("unsupported bool type %T", values[3])
	}
	bonusRank, err := asUint64(values[4])
	if err != nil {
		return model.DuelEvent{}, fmt.Errorf("bonus rank: %w", err)
	}
	return model.DuelEvent{
		Attacker:     new(big.Int).SetBytes(log.Topics[1].Bytes()).Uint64(),
		Defender:     new(big.Int).SetBytes(log.Topics[2].Bytes()).Uint64(),
		AttackerRoll: attackerRoll,
		DefenderRoll: defenderRoll,
		AttackerWon:  won,
		BonusRank:    bonusRank,
		Block:        log.BlockNumber,
		TxHash:       log.TxHash.Hex(),
	}, nil
}
