package notify

import (
	"fmt"
	"strings"

	"bladeScope/internal/model"
)

// Symbol is the settlement token ticker shown in messages.
const Symbol = "SKILL"

const (
	plainStar  = ":star:"
	orangeStar = "<:orangestar:902186827232968764>"
	redStar    = "<:redstar:902186790973210704>"
)

type element struct {
	emoji string
	tag   string
}

var elements = []element{
	{emoji: "<:cb_fire:851949139902332968>", tag: "STR"},
	{emoji: "<:cb_earth:851949139540312085>", tag: "DEX"},
	{emoji: "<:cb_lightning:851949139897090118>", tag: "CHA"},
	{emoji: "<:cb_water:851949139893813288>", tag: "INT"},
	{emoji: ":muscle_tone3:", tag: "PWR"},
}

func elementOf(trait uint8) element {
	if int(trait) < len(elements) {
		return elements[trait]
	}
	return element{emoji: ":grey_question:", tag: "???"}
}

func status(effect model.EffectKind) (prefix, word string) {
	switch effect {
	case model.EffectList:
		return ":arrow_up:", "Listed"
	case model.EffectRelist:
		return ":arrows_counterclockwise:", "Relisted"
	case model.EffectSell:
		return ":arrow_down:", "Sold"
	case model.EffectBurnPurchase:
		return ":fire:", "Burned"
	default:
		return "", string(effect)
	}
}

// Stars renders the star indicator of a gear tier (0-based).
func Stars(tier uint8) string {
	glyph := plainStar
	switch {
	case tier >= 4:
		glyph = redStar
	case tier == 3:
		glyph = orangeStar
	}
	return strings.Repeat(glyph, int(tier)+1)
}

// Format renders the chat message of a derived record.
func Format(record model.DerivedRecord) (string, error) {
	prefix, word := status(record.Effect)
	price := record.Price
	if record.BuyerPrice != nil {
		price = *record.BuyerPrice
	}
	tail := fmt.Sprintf("- **%s %s**", price.String(), Symbol)

	switch {
	case record.EntityKind == model.EntityCharacter:
		if record.Character == nil {
			return "", fmt.Errorf("character record %d has no stats", record.EntityID)
		}
		c := record.Character
		return fmt.Sprintf("%s %s %s %d -- %d lvl, %d+%d exp, %d/200 sta %s",
			prefix, word, elementOf(record.Trait).emoji, record.EntityID,
			int(c.Level)+1, c.Exp, c.UnclaimedExp, c.Stamina, tail), nil
	case record.EntityKind.IsGear():
		if record.Gear == nil {
			return "", fmt.Errorf("%s record %d has no stats", record.EntityKind, record.EntityID)
		}
		g := record.Gear
		parts := []string{
			prefix,
			word,
			elementOf(record.Trait).emoji + Stars(g.Stars),
			fmt.Sprintf("%d", record.EntityID),
			"--",
			formatStats(g.Stats),
		}
		if record.EntityKind == model.EntityWeapon && len(g.Stats) > 1 {
			parts = append(parts, fmt.Sprintf("(%d avg)", average(g.Stats)))
		}
		if g.BonusPower > 0 {
			parts = append(parts, fmt.Sprintf("Bonus Power: %d", g.BonusPower))
		}
		parts = append(parts, tail)
		return strings.Join(parts, " "), nil
	default:
		return "", fmt.Errorf("unknown entity kind %q", record.EntityKind)
	}
}

func formatStats(stats []model.StatPair) string {
	if len(stats) == 0 {
		return "Unknown stats"
	}
	out := make([]string, 0, len(stats))
	for _, stat := range stats {
		el := elementOf(stat.Trait)
		out = append(out, fmt.Sprintf("%s%s +%d", el.emoji, el.tag, stat.Value))
	}
	return strings.Join(out, " ")
}

// average rounds half up.
func average(stats []model.StatPair) uint64 {
	var sum uint64
	for _, stat := range stats {
		sum += stat.Value
	}
	n := uint64(len(stats))
	return (2*sum + n) / (2 * n)
}
