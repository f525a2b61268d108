package ability

import (
	"maps"
	"slices"

	"github.com/udisondev/pathtracker/internal/bonus"
)

const defaultDamageRatio = 3

// Params are the character inputs an effect formula reads.
type Params struct {
	BAB   int
	Ratio int // damage per point of attack traded; 0 means the kind's default
}

// Part is a group of effects sharing one bonus type. Penalty parts are the
// cost side of a trade; they bypass type stacking and always add up.
type Part struct {
	Type    bonus.BonusType
	Effects map[bonus.Stat]int
	Penalty bool
}

func penalty(effects map[bonus.Stat]int) Part {
	return Part{Type: bonus.TypeUntyped, Effects: effects, Penalty: true}
}

type strategy func(p Params) []Part

var strategies = map[Kind]strategy{
	KindPowerAttack: func(p Params) []Part {
		pen := tradePenalty(p.BAB)
		return []Part{
			{Type: bonus.TypeUntyped, Effects: map[bonus.Stat]int{bonus.Damage: 2 * pen}},
			penalty(map[bonus.Stat]int{bonus.Attack: -pen}),
		}
	},
	KindImprovedPowerAttack: func(p Params) []Part {
		pen := tradePenalty(p.BAB)
		ratio := p.Ratio
		if ratio <= 0 {
			ratio = defaultDamageRatio
		}
		return []Part{
			{Type: bonus.TypeUntyped, Effects: map[bonus.Stat]int{bonus.Damage: ratio * pen}},
			penalty(map[bonus.Stat]int{bonus.Attack: -pen}),
		}
	},
	KindCombatExpertise: func(p Params) []Part {
		pen := tradePenalty(p.BAB)
		return []Part{
			{Type: bonus.TypeDodge, Effects: map[bonus.Stat]int{bonus.AC: pen}},
			penalty(map[bonus.Stat]int{bonus.Attack: -pen}),
		}
	},
	KindDeadlyAim: func(p Params) []Part {
		pen := tradePenalty(p.BAB)
		return []Part{
			{Type: bonus.TypeUntyped, Effects: map[bonus.Stat]int{bonus.RangedDamage: 2 * pen}},
			penalty(map[bonus.Stat]int{bonus.RangedAttack: -pen}),
		}
	},
	KindFightingDefensively: func(Params) []Part {
		return []Part{
			{Type: bonus.TypeDodge, Effects: map[bonus.Stat]int{bonus.AC: 2}},
			penalty(map[bonus.Stat]int{bonus.Attack: -4}),
		}
	},
	KindTotalDefense: func(Params) []Part {
		return []Part{{Type: bonus.TypeDodge, Effects: map[bonus.Stat]int{bonus.AC: 4}}}
	},
	KindRage: func(Params) []Part {
		return []Part{
			{Type: bonus.TypeMorale, Effects: map[bonus.Stat]int{
				bonus.Strength:     4,
				bonus.Constitution: 4,
				bonus.Will:         2,
			}},
			penalty(map[bonus.Stat]int{bonus.AC: -2}),
		}
	},
	KindCharge: func(Params) []Part {
		return []Part{
			{Type: bonus.TypeUntyped, Effects: map[bonus.Stat]int{bonus.Attack: 2}},
			penalty(map[bonus.Stat]int{bonus.AC: -2}),
		}
	},
}

// tradePenalty is the attack penalty taken by attack-for-X trades:
// -1, and another -1 at BAB 4 and every 4 points after.
func tradePenalty(bab int) int {
	if bab < 0 {
		bab = 0
	}
	return 1 + bab/4
}

// Effects computes the effect groups of a formula-driven kind.
// Returns nil for KindStatic and unknown kinds.
func Effects(k Kind, p Params) []Part {
	s, ok := strategies[k]
	if !ok {
		return nil
	}
	return s(p)
}

// Ability is a toggleable combat option owned by a character.
type Ability struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Kind Kind   `json:"kind" yaml:"kind"`

	// Type and Static are read only for KindStatic.
	Type   bonus.BonusType    `json:"type,omitempty" yaml:"type,omitempty"`
	Static map[bonus.Stat]int `json:"static,omitempty" yaml:"static,omitempty"`
	Ratio  int                `json:"ratio,omitempty" yaml:"ratio,omitempty"`
	Active bool               `json:"active" yaml:"active"`
}

// Modifiers returns the bonus modifiers this ability contributes for a
// character with the given BAB. Penalties are returned by Penalties.
// An inactive ability contributes nothing.
func (a Ability) Modifiers(bab int) []bonus.Modifier {
	var mods []bonus.Modifier
	for _, p := range a.parts(bab) {
		if p.Penalty || len(p.Effects) == 0 {
			continue
		}
		mods = append(mods, bonus.Modifier{
			Name:    a.Name,
			Type:    p.Type,
			Effects: p.Effects,
			Source:  bonus.SourceAbility,
		})
	}
	return mods
}

// Penalties returns the trade-off penalties of an active ability, one per
// stat, in stat name order.
func (a Ability) Penalties(bab int) []bonus.Penalty {
	var out []bonus.Penalty
	for _, p := range a.parts(bab) {
		if !p.Penalty {
			continue
		}
		for _, s := range slices.Sorted(maps.Keys(p.Effects)) {
			if v := p.Effects[s]; v != 0 {
				out = append(out, bonus.Penalty{Name: a.Name, Stat: s, Value: v, Source: bonus.SourceAbility})
			}
		}
	}
	return out
}

func (a Ability) parts(bab int) []Part {
	if !a.Active {
		return nil
	}
	if a.Kind == KindStatic {
		typ := a.Type
		if typ == "" {
			typ = bonus.TypeUntyped
		}
		return []Part{{Type: typ, Effects: maps.Clone(a.Static)}}
	}
	return Effects(a.Kind, Params{BAB: bab, Ratio: a.Ratio})
}
