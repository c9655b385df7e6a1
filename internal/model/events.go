package model

// QuestEventKind names a quest lifecycle event.
type QuestEventKind string

const (
	QuestAssigned       QuestEventKind = "QuestAssigned"
	QuestComplete       QuestEventKind = "QuestComplete"
	QuestSkipped        QuestEventKind = "QuestSkipped"
	WeeklyRewardClaimed QuestEventKind = "WeeklyRewardClaimed"
)

// QuestEvent is a decoded quests-contract event.
type QuestEvent struct {
	Kind      QuestEventKind
	QuestID   uint64
	Character uint64
	Tier      uint8
	User      string
	Block     uint64
	TxHash    string
}

// DuelEvent is a decoded pvp DuelFinished event.
type DuelEvent struct {
	Attacker     uint64
	Defender     uint64
	AttackerRoll uint64
	DefenderRoll uint64
	AttackerWon  bool
	BonusRank    uint64
	Block        uint64
	TxHash       string
}
