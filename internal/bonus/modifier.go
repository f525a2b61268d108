package bonus

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

// Stat names an attribute or numeric channel of a character.
type Stat string

const (
	Strength     Stat = "strength"
	Dexterity    Stat = "dexterity"
	Constitution Stat = "constitution"
	Intelligence Stat = "intelligence"
	Wisdom       Stat = "wisdom"
	Charisma     Stat = "charisma"

	BAB Stat = "bab"
	AC  Stat = "ac"

	// Channels read by call sites that layer extra math over the sheet.
	Attack       Stat = "attack"
	Damage       Stat = "damage"
	RangedAttack Stat = "ranged_attack"
	RangedDamage Stat = "ranged_damage"
	Fortitude    Stat = "fortitude"
	Reflex       Stat = "reflex"
	Will         Stat = "will"
	Initiative   Stat = "initiative"
	CMB          Stat = "cmb"
	CMD          Stat = "cmd"
)

// AbilityScores lists the six core ability scores.
var AbilityScores = []Stat{Strength, Dexterity, Constitution, Intelligence, Wisdom, Charisma}

const defaultAbilityScore = 10

// AttributeSet maps stat name to value.
type AttributeSet map[Stat]int

// Get returns the value for s, falling back to the default when absent.
func (a AttributeSet) Get(s Stat) int {
	if v, ok := a[s]; ok {
		return v
	}
	return DefaultValue(s)
}

// Clone returns an independent copy. A nil set clones to an empty one.
func (a AttributeSet) Clone() AttributeSet {
	out := make(AttributeSet, len(a))
	maps.Copy(out, a)
	return out
}

// DefaultValue is the value a stat has when the base set omits it:
// 10 for ability scores, 0 for everything else.
func DefaultValue(s Stat) int {
	for _, a := range AbilityScores {
		if s == a {
			return defaultAbilityScore
		}
	}
	return 0
}

// Modifier is one effect-granting entity: a buff, a piece of gear or an active ability.
type Modifier struct {
	Name    string       `json:"name" yaml:"name"`
	Type    BonusType    `json:"type" yaml:"type"`
	Effects map[Stat]int `json:"effects" yaml:"effects"`
	Source  SourceKind   `json:"source" yaml:"source"`
}

var (
	ErrEmptyName     = errors.New("modifier name is empty")
	ErrUnknownType   = errors.New("unknown bonus type")
	ErrUnknownSource = errors.New("unknown source kind")
	ErrNoEffects     = errors.New("modifier has no effects")
	ErrEmptyStatName = errors.New("effect stat name is empty")
)

// Validate checks the shape of a modifier before it is stored.
// Aggregate never calls it: the engine accepts anything and defaults.
func (m Modifier) Validate() error {
	var errs []error
	if strings.TrimSpace(m.Name) == "" {
		errs = append(errs, ErrEmptyName)
	}
	if !m.Type.Valid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownType, m.Type))
	}
	if !m.Source.Valid() {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownSource, m.Source))
	}
	if len(m.Effects) == 0 {
		errs = append(errs, ErrNoEffects)
	}
	for s := range m.Effects {
		if strings.TrimSpace(string(s)) == "" {
			errs = append(errs, ErrEmptyStatName)
			break
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid modifier %q: %w", m.Name, errors.Join(errs...))
	}
	return nil
}

// BonusRecord is one bonus that actually contributed to a stat.
type BonusRecord struct {
	Type   BonusType `json:"type" yaml:"type"`
	Value  int       `json:"value" yaml:"value"`
	Name   string    `json:"name" yaml:"name"`
	Source string    `json:"source" yaml:"source"`
}

// Result is the output of an aggregation.
type Result struct {
	Final   AttributeSet           `json:"final"`
	Details map[Stat][]BonusRecord `json:"details"`
}

// Clone deep-copies the result.
func (r Result) Clone() Result {
	out := Result{
		Final:   r.Final.Clone(),
		Details: make(map[Stat][]BonusRecord, len(r.Details)),
	}
	for s, recs := range r.Details {
		cp := make([]BonusRecord, len(recs))
		copy(cp, recs)
		out.Details[s] = cp
	}
	return out
}
