package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"bladeScope/internal/model"
)

// ErrUnknownNetwork is returned when a selected network has no entry in the network table.
var ErrUnknownNetwork = errors.New("unknown network")

// Cursor backends.
const (
	CursorPostgres = "postgres"
	CursorRedis    = "redis"
	CursorFile     = "file"
)

// Network is one entry of the network table.
type Network struct {
	ID            string
	RPCURL        string
	Addresses     model.Addresses
	Webhooks      map[model.EntityKind]string
	TokenDecimals int32
}

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Networks         []string
	Table            map[string]Network
	PGDSN            string
	CursorBackend    string
	RedisURL         string
	Checkpoint       string
	Confirmations    uint64
	PollInterval     time.Duration
	RPCMaxRetries    uint64
	RPCRetryDelay    time.Duration
	NotifyRetryDelay time.Duration
	MetricsURL       string
	MetricsJob       string
	MetricsInstance  string
	SnapshotWindow   uint64
	ExpTable         string
	Journal          string
	LogLevel         string
}

// Network returns the table entry for id.
func (c Config) Network(id string) (Network, error) {
	network, ok := c.Table[strings.ToLower(id)]
	if !ok {
		return Network{}, fmt.Errorf("%w: %s", ErrUnknownNetwork, id)
	}
	return network, nil
}

// Selected resolves every network chosen with `network`, failing on the first unknown id.
func (c Config) Selected() ([]Network, error) {
	out := make([]Network, 0, len(c.Networks))
	for _, id := range c.Networks {
		network, err := c.Network(id)
		if err != nil {
			return nil, err
		}
		out = append(out, network)
	}
	return out, nil
}

type networkFile struct {
	RPC           string            `mapstructure:"rpc"`
	Contracts     map[string]string `mapstructure:"contracts"`
	Webhooks      map[string]string `mapstructure:"webhooks"`
	TokenDecimals int32             `mapstructure:"token-decimals"`
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BLADESCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("cursor-backend", CursorPostgres)
	v.SetDefault("checkpoint", "./data/cursors.json")
	v.SetDefault("confirmations", uint64(2))
	v.SetDefault("poll-interval", 500*time.Millisecond)
	v.SetDefault("rpc-max-retries", uint64(5))
	v.SetDefault("rpc-retry-delay", time.Second)
	v.SetDefault("notify-retry-delay", 5*time.Second)
	v.SetDefault("metrics-job", "bladescope")
	v.SetDefault("metrics-instance", "indexer")
	v.SetDefault("snapshot-window", uint64(10))
	v.SetDefault("exp-table", "./exp_table.yaml")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	table, err := loadTable(v)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Networks:         getStringSlice(v, "network"),
		Table:            table,
		PGDSN:            v.GetString("pg-dsn"),
		CursorBackend:    strings.ToLower(v.GetString("cursor-backend")),
		RedisURL:         v.GetString("redis-url"),
		Checkpoint:       v.GetString("checkpoint"),
		Confirmations:    v.GetUint64("confirmations"),
		PollInterval:     v.GetDuration("poll-interval"),
		RPCMaxRetries:    v.GetUint64("rpc-max-retries"),
		RPCRetryDelay:    v.GetDuration("rpc-retry-delay"),
		NotifyRetryDelay: v.GetDuration("notify-retry-delay"),
		MetricsURL:       v.GetString("metrics-url"),
		MetricsJob:       v.GetString("metrics-job"),
		MetricsInstance:  v.GetString("metrics-instance"),
		SnapshotWindow:   v.GetUint64("snapshot-window"),
		ExpTable:         v.GetString("exp-table"),
		Journal:          v.GetString("journal"),
		LogLevel:         v.GetString("log-level"),
	}
	if len(cfg.Networks) == 0 {
		for id := range table {
			cfg.Networks = append(cfg.Networks, id)
		}
		sort.Strings(cfg.Networks)
	}

	switch cfg.CursorBackend {
	case CursorPostgres, CursorRedis, CursorFile:
	default:
		return Config{}, fmt.Errorf("cursor-backend must be %s, %s or %s, got %q", CursorPostgres, CursorRedis, CursorFile, cfg.CursorBackend)
	}

	return cfg, nil
}

func loadTable(v *viper.Viper) (map[string]Network, error) {
	var raw map[string]networkFile
	if err := v.UnmarshalKey("networks", &raw); err != nil {
		return nil, fmt.Errorf("read network table: %w", err)
	}

	table := make(map[string]Network, len(raw))
	for id, entry := range raw {
		id = strings.ToLower(id)
		addresses, err := ParseContracts(entry.Contracts)
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", id, err)
		}
		webhooks, err := parseWebhooks(entry.Webhooks)
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", id, err)
		}
		rpc := entry.RPC
		if fromEnv := v.GetString("networks." + id + ".rpc"); fromEnv != "" {
			rpc = fromEnv
		}
		table[id] = Network{
			ID:            id,
			RPCURL:        rpc,
			Addresses:     addresses,
			Webhooks:      webhooks,
			TokenDecimals: entry.TokenDecimals,
		}
	}
	return table, nil
}

// ParseContracts converts a role -> hex address map into the tracked-contract table.
func ParseContracts(inputs map[string]string) (model.Addresses, error) {
	addresses := make(model.Addresses, len(inputs))
	for key, input := range inputs {
		role, err := model.ParseRole(key)
		if err != nil {
			return nil, err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid %s address: %s", role, input)
		}
		addresses[role] = common.HexToAddress(input)
	}
	return addresses, nil
}

func parseWebhooks(inputs map[string]string) (map[model.EntityKind]string, error) {
	out := make(map[model.EntityKind]string, len(inputs))
	for key, url := range inputs {
		kind := model.EntityKind(strings.ToLower(strings.TrimSpace(key)))
		switch kind {
		case model.EntityCharacter, model.EntityWeapon, model.EntityShield:
		default:
			return nil, fmt.Errorf("webhook for unknown entity kind: %s", key)
		}
		if url = strings.TrimSpace(url); url != "" {
			out[kind] = url
		}
	}
	return out, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(strings.ToLower(item))
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
