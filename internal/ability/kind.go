// Package ability turns toggleable combat abilities into bonus modifiers.
//
// An ability's effects are derived from its Kind, never from its display
// name, so a player may call Power Attack whatever they like.
package ability

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Kind identifies the effect formula of an ability.
type Kind int8

const (
	KindStatic Kind = iota // fixed effects entered by the user
	KindPowerAttack
	KindImprovedPowerAttack
	KindCombatExpertise
	KindDeadlyAim
	KindFightingDefensively
	KindTotalDefense
	KindRage
	KindCharge
)

var kindNames = map[Kind]string{
	KindStatic:              "static",
	KindPowerAttack:         "power_attack",
	KindImprovedPowerAttack: "improved_power_attack",
	KindCombatExpertise:     "combat_expertise",
	KindDeadlyAim:           "deadly_aim",
	KindFightingDefensively: "fighting_defensively",
	KindTotalDefense:        "total_defense",
	KindRage:                "rage",
	KindCharge:              "charge",
}

// String returns the stable tag for k.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int8(k))
}

// ParseKind resolves a kind tag. Spaces, dashes and case are ignored.
// On a miss the error names the closest known tag.
func ParseKind(s string) (Kind, error) {
	norm := normalizeTag(s)
	for k, name := range kindNames {
		if name == norm {
			return k, nil
		}
	}

	best, bestDist := "", -1
	for _, name := range kindNames {
		d := levenshtein.ComputeDistance(norm, name)
		if bestDist < 0 || d < bestDist || (d == bestDist && name < best) {
			best, bestDist = name, d
		}
	}
	return KindStatic, fmt.Errorf("unknown ability kind %q (did you mean %q?)", s, best)
}

func normalizeTag(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return s
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
