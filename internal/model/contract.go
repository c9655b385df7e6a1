package model

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Role names the part a contract plays in the game.
type Role string

const (
	RoleMarket     Role = "market"
	RoleCharacters Role = "characters"
	RoleWeapons    Role = "weapons"
	RoleShields    Role = "shields"
	RoleQuests     Role = "quests"
	RolePvP        Role = "pvp"
	RoleGame       Role = "game"
	RoleToken      Role = "token"
	RoleOracle     Role = "oracle"
)

// Roles lists every known role in a stable order.
var Roles = []Role{RoleMarket, RoleCharacters, RoleWeapons, RoleShields, RoleQuests, RolePvP, RoleGame, RoleToken, RoleOracle}

// ParseRole converts a config key into a Role.
func ParseRole(input string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(input)))
	for _, known := range Roles {
		if role == known {
			return role, nil
		}
	}
	return "", fmt.Errorf("unknown contract role: %s", input)
}

// TrackedContract is one static (network, role, address) entry.
type TrackedContract struct {
	Network string         `json:"network"`
	Role    Role           `json:"role"`
	Address common.Address `json:"address"`
}

// Addresses is the tracked-contract table of a single network.
type Addresses map[Role]common.Address

// Get returns the address for a role, or false when the role is not configured.
func (a Addresses) Get(role Role) (common.Address, bool) {
	addr, ok := a[role]
	if !ok || addr == (common.Address{}) {
		return common.Address{}, false
	}
	return addr, true
}

// EntityKindOf resolves which NFT contract an address belongs to.
func (a Addresses) EntityKindOf(addr common.Address) (EntityKind, bool) {
	for kind, role := range entityRoles {
		if known, ok := a.Get(role); ok && known == addr {
			return kind, true
		}
	}
	return "", false
}

// EntityAddress returns the NFT contract holding entities of kind.
func (a Addresses) EntityAddress(kind EntityKind) (common.Address, bool) {
	role, ok := entityRoles[kind]
	if !ok {
		return common.Address{}, false
	}
	return a.Get(role)
}

// Contracts flattens the table into TrackedContract entries.
func (a Addresses) Contracts(network string) []TrackedContract {
	out := make([]TrackedContract, 0, len(a))
	for _, role := range Roles {
		if addr, ok := a.Get(role); ok {
			out = append(out, TrackedContract{Network: network, Role: role, Address: addr})
		}
	}
	return out
}

var entityRoles = map[EntityKind]Role{
	EntityCharacter: RoleCharacters,
	EntityWeapon:    RoleWeapons,
	EntityShield:    RoleShields,
}
