package contracts

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const marketABIJSON = `[
  {
    "inputs": [
      {"internalType": "contract IERC721", "name": "_tokenAddress", "type": "address"},
      {"internalType": "uint256", "name": "_id", "type": "uint256"},
      {"internalType": "uint256", "name": "_price", "type": "uint256"},
      {"internalType": "address", "name": "_targetBuyer", "type": "address"}
    ],
    "name": "addListing",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "contract IERC721", "name": "_tokenAddress", "type": "address"},
      {"internalType": "uint256", "name": "_id", "type": "uint256"},
      {"internalType": "uint256", "name": "_newPrice", "type": "uint256"}
    ],
    "name": "changeListingPrice",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "contract IERC721", "name": "_tokenAddress", "type": "address"},
      {"internalType": "uint256", "name": "_id", "type": "uint256"},
      {"internalType": "uint256", "name": "_maxPrice", "type": "uint256"}
    ],
    "name": "purchaseListing",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "_id", "type": "uint256"},
      {"internalType": "uint256", "name": "_maxPrice", "type": "uint256"}
    ],
    "name": "purchaseBurnCharacter",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "contract IERC721", "name": "_tokenAddress", "type": "address"},
      {"internalType": "uint256", "name": "_id", "type": "uint256"}
    ],
    "name": "getTargetBuyer",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "tax",
    "outputs": [{"internalType": "int128", "name": "", "type": "int128"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const charactersABIJSON = `[
  {
    "inputs": [{"internalType": "uint256", "name": "id", "type": "uint256"}],
    "name": "get",
    "outputs": [
      {"internalType": "uint16", "name": "_xp", "type": "uint16"},
      {"internalType": "uint8", "name": "_level", "type": "uint8"},
      {"internalType": "uint8", "name": "_trait", "type": "uint8"},
      {"internalType": "uint64", "name": "_staminaTimestamp", "type": "uint64"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "id", "type": "uint256"}],
    "name": "getStaminaPoints",
    "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "id", "type": "uint256"}],
    "name": "getPower",
    "outputs": [{"internalType": "uint24", "name": "", "type": "uint24"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "id", "type": "uint256"}],
    "name": "getTotalPower",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "totalSupply",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

// gearABIJSON covers the read surface shared by the weapons and shields contracts.
const gearABIJSON = `[
  {
    "inputs": [{"internalType": "uint256", "name": "id", "type": "uint256"}],
    "name": "getTrait",
    "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "id", "type": "uint256"}],
    "name": "getStars",
    "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "id", "type": "uint256"},
      {"internalType": "uint8", "name": "charTrait", "type": "uint8"}
    ],
    "name": "getFightData",
    "outputs": [
      {"internalType": "int128", "name": "", "type": "int128"},
      {"internalType": "int128", "name": "", "type": "int128"},
      {"internalType": "uint24", "name": "", "type": "uint24"},
      {"internalType": "uint8", "name": "", "type": "uint8"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "id", "type": "uint256"}],
    "name": "get",
    "outputs": [
      {"internalType": "uint16", "name": "_properties", "type": "uint16"},
      {"internalType": "uint16", "name": "_stat1", "type": "uint16"},
      {"internalType": "uint16", "name": "_stat2", "type": "uint16"},
      {"internalType": "uint16", "name": "_stat3", "type": "uint16"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "id", "type": "uint256"}],
    "name": "getStatPattern",
    "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "totalSupply",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const gameABIJSON = `[
  {
    "inputs": [{"internalType": "uint256", "name": "char", "type": "uint256"}],
    "name": "getXpRewards",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "name": "vars",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "mintCharacterFee",
    "outputs": [{"internalType": "int128", "name": "", "type": "int128"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "mintWeaponFee",
    "outputs": [{"internalType": "int128", "name": "", "type": "int128"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "fightXpGain",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const erc20ABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "from", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "value", "type": "uint256"}
    ],
    "name": "Transfer",
    "type": "event"
  },
  {
    "inputs": [{"internalType": "address", "name": "account", "type": "address"}],
    "name": "balanceOf",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"}
]`

const questsABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "questID", "type": "uint256"},
      {"indexed": true, "internalType": "uint256", "name": "characterID", "type": "uint256"}
    ],
    "name": "QuestAssigned",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "questID", "type": "uint256"},
      {"indexed": true, "internalType": "uint256", "name": "characterID", "type": "uint256"}
    ],
    "name": "QuestComplete",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "questID", "type": "uint256"},
      {"indexed": true, "internalType": "uint256", "name": "characterID", "type": "uint256"}
    ],
    "name": "QuestSkipped",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "user", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "rewardID", "type": "uint256"}
    ],
    "name": "WeeklyRewardClaimed",
    "type": "event"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "name": "quests",
    "outputs": [
      {"internalType": "uint256", "name": "id", "type": "uint256"},
      {"internalType": "uint8", "name": "tier", "type": "uint8"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const pvpABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "attacker", "type": "uint256"},
      {"indexed": true, "internalType": "uint256", "name": "defender", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "timestamp", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "attackerRoll", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "defenderRoll", "type": "uint256"},
      {"indexed": false, "internalType": "bool", "name": "attackerWon", "type": "bool"},
      {"indexed": false, "internalType": "uint256", "name": "bonusRank", "type": "uint256"}
    ],
    "name": "DuelFinished",
    "type": "event"
  },
  {
    "inputs": [],
    "name": "getDuelQueue",
    "outputs": [{"internalType": "uint256[]", "name": "", "type": "uint256[]"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "gameCofferTaxDue",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const oracleABIJSON = `[
  {
    "inputs": [],
    "name": "currentPrice",
    "outputs": [{"internalType": "uint256", "name": "price", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

type lazyABI struct {
	json   string
	once   sync.Once
	parsed abi.ABI
	err    error
}

func (l *lazyABI) get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.json))
	})
	return l.parsed, l.err
}

var (
	marketABI     = &lazyABI{json: marketABIJSON}
	charactersABI = &lazyABI{json: charactersABIJSON}
	gearABI       = &lazyABI{json: gearABIJSON}
	gameABI       = &lazyABI{json: gameABIJSON}
	erc20ABI      = &lazyABI{json: erc20ABIJSON}
	questsABI     = &lazyABI{json: questsABIJSON}
	pvpABI        = &lazyABI{json: pvpABIJSON}
	oracleABI     = &lazyABI{json: oracleABIJSON}
)

// MarketABI returns the parsed marketplace ABI.
func MarketABI() (abi.ABI, error) { return marketABI.get() }

// CharactersABI returns the parsed characters NFT ABI.
func CharactersABI() (abi.ABI, error) { return charactersABI.get() }

// GearABI returns the parsed ABI shared by weapons and shields.
func GearABI() (abi.ABI, error) { return gearABI.get() }

// GameABI returns the parsed main game contract ABI.
func GameABI() (abi.ABI, error) { return gameABI.get() }

// ERC20ABI returns the parsed settlement token ABI.
func ERC20ABI() (abi.ABI, error) { return erc20ABI.get() }

// QuestsABI returns the parsed quests ABI.
func QuestsABI() (abi.ABI, error) { return questsABI.get() }

// PvPABI returns the parsed pvp arena ABI.
func PvPABI() (abi.ABI, error) { return pvpABI.get() }

// OracleABI returns the parsed price oracle ABI.
func OracleABI() (abi.ABI, error) { return oracleABI.get() }

// MustABI panics on a parse error. Only for package-level tables and tests.
func MustABI(parsed abi.ABI, err error) abi.ABI {
	if err != nil {
		panic(err)
	}
	return parsed
}
