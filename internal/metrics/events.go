package metrics

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bladeScope/internal/chain"
	"bladeScope/internal/contracts"
	"bladeScope/internal/model"
)

// DefaultSnapshotWindow is how close to the head a block must be for the
// game-state snapshot to be taken.
const DefaultSnapshotWindow = 10

// LogReader is the chain access the events stream needs.
type LogReader interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
	TransactionSender(ctx context.Context, log types.Log) (common.Address, error)
}

// StateReader answers the contract reads behind quest tiers and snapshots.
type StateReader interface {
	QuestTier(ctx context.Context, questID uint64, block uint64) (uint8, error)
	GameVar(ctx context.Context, index uint64, block uint64) (*big.Int, error)
	GameValue(ctx context.Context, method string, block uint64) (*big.Int, error)
	TotalSupply(ctx context.Context, role model.Role, block uint64) (*big.Int, error)
	OraclePrice(ctx context.Context, block uint64) (*big.Int, error)
	DuelQueueLength(ctx context.Context, block uint64) (int, error)
	CofferTaxDue(ctx context.Context, block uint64) (*big.Int, error)
	TokenBalance(ctx context.Context, holder common.Address, block uint64) (*big.Int, error)
}

// EventsHandler is the block handler of the events stream: quest and duel
// events of every block, plus a game-state snapshot near the head.
type EventsHandler struct {
	network        string
	addresses      model.Addresses
	chain          LogReader
	state          StateReader
	sink           Pusher
	snapshotWindow uint64
	logger         *zap.Logger
}

func NewEventsHandler(network string, addresses model.Addresses, chain LogReader, state StateReader, sink Pusher, snapshotWindow uint64, logger *zap.Logger) *EventsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventsHandler{
		network:        network,
		addresses:      addresses,
		chain:          chain,
		state:          state,
		sink:           sink,
		snapshotWindow: snapshotWindow,
		logger:         logger,
	}
}

// HandleBlock collects the block's samples and pushes them stamped with the block time.
func (h *EventsHandler) HandleBlock(ctx context.Context, height uint64) error {
	batch, err := h.Collect(ctx, height)
	if err != nil {
		return err
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := h.sink.Push(ctx, batch); err != nil {
		return err
	}
	h.logger.Debug("metrics pushed", zap.Uint64("block", height), zap.Int("series", batch.Len()))
	return nil
}

// Collect builds the batch for one block without pushing it.
func (h *EventsHandler) Collect(ctx context.Context, height uint64) (*Batch, error) {
	header, err := h.chain.HeaderByNumber(ctx, height)
	if err != nil {
		return nil, fmt.Errorf("header %d: %w", height, err)
	}
	batch := NewBatch(time.Unix(int64(header.Time), 0).UTC())

	if err := h.collectQuests(ctx, batch, height); err != nil {
		return nil, err
	}
	if err := h.collectDuels(ctx, batch, height); err != nil {
		return nil, err
	}

	latest, err := h.chain.LatestBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest block: %w", err)
	}
	if latest <= height+h.snapshotWindow {
		if err := h.collectSnapshot(ctx, batch, height); err != nil {
			if !unanswerable(err) {
				return nil, err
			}
			h.logger.Warn("snapshot cut short", zap.Uint64("block", height), zap.Error(err))
		}
	}
	return batch, nil
}

var questMetrics = map[model.QuestEventKind]struct{ name, help string }{
	model.QuestAssigned:       {"cb_quest_assigned", "QuestAssigned"},
	model.QuestComplete:       {"cb_quest_complete", "QuestComplete"},
	model.QuestSkipped:        {"cb_quest_skipped", "QuestSkipped"},
	model.WeeklyRewardClaimed: {"cb_quest_weekly_reward_claimed", "WeeklyRewardClaimed"},
}

func (h *EventsHandler) collectQuests(ctx context.Context, batch *Batch, height uint64) error {
	quests, ok := h.addresses.Get(model.RoleQuests)
	if !ok {
		return nil
	}
	topics, err := contracts.QuestTopics()
	if err != nil {
		return err
	}
	logs, err := h.chain.FilterLogs(ctx, height, height, []common.Address{quests}, topics)
	if err != nil {
		return fmt.Errorf("quest logs %d: %w", height, err)
	}

	for _, log := range logs {
		event, err := contracts.DecodeQuestEvent(log)
		if errors.Is(err, contracts.ErrUnknownEvent) {
			continue
		}
		if err != nil {
			h.logger.Warn("undecodable quest log", zap.String("txn", log.TxHash.Hex()), zap.Error(err))
			continue
		}

		metric := questMetrics[event.Kind]
		if event.Kind == model.WeeklyRewardClaimed {
			if err := batch.Add(metric.name, metric.help, 1,
				Label{"network", h.network},
				Label{"user", event.User},
				Label{"block", strconv.FormatUint(event.Block, 10)},
				Label{"hash", event.TxHash},
			); err != nil {
				return err
			}
			continue
		}

		tier, err := h.state.QuestTier(ctx, event.QuestID, height)
		if unanswerable(err) {
			h.logger.Warn("skipping quest event", zap.String("txn", event.TxHash), zap.Uint64("quest", event.QuestID), zap.Error(err))
			continue
		}
		if err != nil {
			return fmt.Errorf("quest %d tier: %w", event.QuestID, err)
		}
		sender, err := h.chain.TransactionSender(ctx, log)
		if err != nil {
			return fmt.Errorf("sender of %s: %w", event.TxHash, err)
		}
		if err := batch.Add(metric.name, metric.help, 1,
			Label{"network", h.network},
			Label{"tier", strconv.Itoa(int(tier))},
			Label{"quest", strconv.FormatUint(event.QuestID, 10)},
			Label{"character", strconv.FormatUint(event.Character, 10)},
			Label{"user", sender.Hex()},
			Label{"block", strconv.FormatUint(event.Block, 10)},
			Label{"hash", event.TxHash},
		); err != nil {
			return err
		}
	}
	return nil
}

func (h *EventsHandler) collectDuels(ctx context.Context, batch *Batch, height uint64) error {
	pvp, ok := h.addresses.Get(model.RolePvP)
	if !ok {
		return nil
	}
	topic, err := contracts.DuelTopic()
	if err != nil {
		return err
	}
	logs, err := h.chain.FilterLogs(ctx, height, height, []common.Address{pvp}, []common.Hash{topic})
	if err != nil {
		return fmt.Errorf("duel logs %d: %w", height, err)
	}

	for _, log := range logs {
		duel, err := contracts.DecodeDuelEvent(log)
		if errors.Is(err, contracts.ErrUnknownEvent) {
			continue
		}
		if err != nil {
			h.logger.Warn("undecodable duel log", zap.String("txn", log.TxHash.Hex()), zap.Error(err))
			continue
		}
		if err := batch.Add("cb_pvp_duel_finished", "DuelFinished", 1,
			Label{"network", h.network},
			Label{"attacker", strconv.FormatUint(duel.Attacker, 10)},
			Label{"defender", strconv.FormatUint(duel.Defender, 10)},
			Label{"attacker_roll", strconv.FormatUint(duel.AttackerRoll, 10)},
			Label{"defender_roll", strconv.FormatUint(duel.DefenderRoll, 10)},
			Label{"attacker_won", strconv.FormatBool(duel.AttackerWon)},
			Label{"bonus_rank", strconv.FormatUint(duel.BonusRank, 10)},
			Label{"block", strconv.FormatUint(duel.Block, 10)},
			Label{"hash", duel.TxHash},
		); err != nil {
			return err
		}
	}
	return nil
}

// gameVar is one slot of the game contract's vars table. Token amounts are
// scaled from wei.
type gameVar struct {
	index uint64
	name  string
	help  string
	wei   bool
}

var gameVars = []gameVar{
	{1, "cb_var_hourly_income", "VAR_HOURLY_INCOME", true},
	{2, "cb_var_hourly_fights", "VAR_HOURLY_FIGHTS", false},
	{3, "cb_var_hourly_power_sum", "VAR_HOURLY_POWER_SUM", false},
	{4, "cb_var_hourly_power_average", "VAR_HOURLY_POWER_AVERAGE", false},
	{5, "cb_var_hourly_pay_per_fight", "VAR_HOURLY_PAY_PER_FIGHT", true},
	{6, "cb_var_hourly_timestamp", "VAR_HOURLY_TIMESTAMP", false},
	{7, "cb_var_daily_max_claim", "VAR_DAILY_MAX_CLAIM", true},
	{8, "cb_var_claim_deposit_amount", "VAR_CLAIM_DEPOSIT_AMOUNT", true},
	{9, "cb_var_param_payout_income_percent", "VAR_PARAM_PAYOUT_INCOME_PERCENT", false},
	{10, "cb_var_param_daily_claim_fights_limit", "VAR_PARAM_DAILY_CLAIM_FIGHTS_LIMIT", false},
	{11, "cb_var_param_daily_claim_deposit_percent", "VAR_PARAM_DAILY_CLAIM_DEPOSIT_PERCENT", false},
	{12, "cb_var_param_max_fight_payout", "VAR_PARAM_MAX_FIGHT_PAYOUT", true},
	{13, "cb_var_hourly_distribution", "VAR_HOURLY_DISTRIBUTION", true},
	{14, "cb_var_unclaimed_skill", "VAR_UNCLAIMED_SKILL", true},
	{15, "cb_var_hourly_max_power_average", "VAR_HOURLY_MAX_POWER_AVERAGE", false},
	{16, "cb_var_param_hourly_max_power_percent", "VAR_PARAM_HOURLY_MAX_POWER_PERCENT", false},
	{17, "cb_var_param_significant_hour_fights", "VAR_PARAM_SIGNIFICANT_HOUR_FIGHTS", false},
	{18, "cb_var_param_hourly_pay_allowance", "VAR_PARAM_HOURLY_PAY_ALLOWANCE", true},
}

var gameValues = []struct{ method, name string }{
	{"mintCharacterFee", "cb_mint_character_fee"},
	{"mintWeaponFee", "cb_mint_weapon_fee"},
	{"fightXpGain", "cb_fight_xp_gain"},
}

func (h *EventsHandler) collectSnapshot(ctx context.Context, batch *Batch, height uint64) error {
	network := Label{"network", h.network}
	add := func(name, help string, value float64) error {
		return batch.Add(name, help, value, network)
	}

	if err := add("cb_block_number", "Block number", float64(height)); err != nil {
		return err
	}

	if game, ok := h.addresses.Get(model.RoleGame); ok {
		for _, v := range gameVars {
			raw, err := h.state.GameVar(ctx, v.index, height)
			if err != nil {
				return fmt.Errorf("vars(%d): %w", v.index, err)
			}
			if err := add(v.name, v.help, toFloat(raw, v.wei)); err != nil {
				return err
			}
		}
		for _, v := range gameValues {
			raw, err := h.state.GameValue(ctx, v.method, height)
			if err != nil {
				return fmt.Errorf("%s: %w", v.method, err)
			}
			if err := add(v.name, v.method, toFloat(raw, false)); err != nil {
				return err
			}
		}
		if _, ok := h.addresses.Get(model.RoleToken); ok {
			pool, err := h.state.TokenBalance(ctx, game, height)
			if err != nil {
				return fmt.Errorf("reward pool balance: %w", err)
			}
			if err := add("cb_reward_pool_skill", "balanceOf", toFloat(pool, true)); err != nil {
				return err
			}
		}
	}

	supplies := []struct {
		role model.Role
		name string
	}{
		{model.RoleCharacters, "cb_character_total_supply"},
		{model.RoleWeapons, "cb_weapon_total_supply"},
		{model.RoleShields, "cb_shield_total_supply"},
	}
	for _, s := range supplies {
		if _, ok := h.addresses.Get(s.role); !ok {
			continue
		}
		supply, err := h.state.TotalSupply(ctx, s.role, height)
		if err != nil {
			return fmt.Errorf("%s totalSupply: %w", s.role, err)
		}
		if err := add(s.name, "totalSupply", toFloat(supply, false)); err != nil {
			return err
		}
	}

	if _, ok := h.addresses.Get(model.RoleOracle); ok {
		price, err := h.state.OraclePrice(ctx, height)
		if err != nil {
			return fmt.Errorf("oracle price: %w", err)
		}
		if err := add("cb_oracle_current_price", "currentPrice", toFloat(price, false)); err != nil {
			return err
		}
	}

	if _, ok := h.addresses.Get(model.RolePvP); ok {
		queue, err := h.state.DuelQueueLength(ctx, height)
		if err != nil {
			return fmt.Errorf("duel queue: %w", err)
		}
		if err := add("cb_pvp_queue", "getDuelQueue", float64(queue)); err != nil {
			return err
		}
		tax, err := h.state.CofferTaxDue(ctx, height)
		if err != nil {
			return fmt.Errorf("coffer tax: %w", err)
		}
		if err := add("cb_pvp_tax_coffer", "gameCofferTaxDue", toFloat(tax, true)); err != nil {
			return err
		}
	}
	return nil
}

// unanswerable reports whether a state read failed in a way a retry cannot fix.
func unanswerable(err error) bool {
	return chain.IsRejected(err) || errors.Is(err, contracts.ErrMalformedResult)
}

func toFloat(value *big.Int, wei bool) float64 {
	exp := int32(0)
	if wei {
		exp = -18
	}
	return decimal.NewFromBigInt(value, exp).InexactFloat64()
}
