package bonus

import (
	"fmt"
	"strings"
)

// BonusType tags a bonus and decides how it combines with others of the same tag.
type BonusType string

const (
	TypeEnhancement  BonusType = "enhancement"
	TypeLuck         BonusType = "luck"
	TypeSacred       BonusType = "sacred"
	TypeProfane      BonusType = "profane"
	TypeAlchemical   BonusType = "alchemical"
	TypeArmor        BonusType = "armor"
	TypeCompetence   BonusType = "competence"
	TypeCircumstance BonusType = "circumstance"
	TypeDeflection   BonusType = "deflection"
	TypeDodge        BonusType = "dodge"
	TypeInherent     BonusType = "inherent"
	TypeInsight      BonusType = "insight"
	TypeMorale       BonusType = "morale"
	TypeNatural      BonusType = "natural"
	TypeShield       BonusType = "shield"
	TypeSize         BonusType = "size"
	TypeTrait        BonusType = "trait"
	TypeUntyped      BonusType = "untyped"

	// TypeBAB is the internal channel for effects that grant base attack bonus.
	TypeBAB BonusType = "bab"
)

// allTypes fixes the order in which bonus records are reported.
var allTypes = []BonusType{
	TypeEnhancement,
	TypeLuck,
	TypeSacred,
	TypeProfane,
	TypeAlchemical,
	TypeArmor,
	TypeCompetence,
	TypeCircumstance,
	TypeDeflection,
	TypeDodge,
	TypeInherent,
	TypeInsight,
	TypeMorale,
	TypeNatural,
	TypeShield,
	TypeSize,
	TypeTrait,
	TypeUntyped,
	TypeBAB,
}

var typeOrder = func() map[BonusType]int {
	m := make(map[BonusType]int, len(allTypes))
	for i, t := range allTypes {
		m[t] = i
	}
	return m
}()

// AllTypes returns every known bonus type in reporting order.
func AllTypes() []BonusType {
	out := make([]BonusType, len(allTypes))
	copy(out, allTypes)
	return out
}

// Valid reports whether t is one of the known bonus types.
func (t BonusType) Valid() bool {
	_, ok := typeOrder[t]
	return ok
}

// Stacks reports whether every bonus of this type is applied.
// Only dodge bonuses stack; all other types keep the single best value.
func (t BonusType) Stacks() bool {
	return t == TypeDodge
}

// ParseBonusType resolves a bonus type tag case-insensitively.
func ParseBonusType(s string) (BonusType, error) {
	t := BonusType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown bonus type %q", s)
	}
	return t, nil
}

// SourceKind says where a modifier came from. Display only.
type SourceKind string

const (
	SourceBuff    SourceKind = "buff"
	SourceGear    SourceKind = "gear"
	SourceAbility SourceKind = "ability"
)

// Valid reports whether k is a known source kind.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceBuff, SourceGear, SourceAbility:
		return true
	default:
		return false
	}
}
