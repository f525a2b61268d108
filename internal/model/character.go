package model

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/udisondev/pathtracker/internal/ability"
	"github.com/udisondev/pathtracker/internal/bonus"
)

var (
	// ErrNotFound is returned when a buff, gear item or ability id is unknown.
	ErrNotFound = errors.New("not found")

	// ErrInvalidName is returned for empty character or entry names.
	ErrInvalidName = errors.New("invalid name")

	// ErrInvalidModifier wraps a bonus validation error.
	ErrInvalidModifier = errors.New("invalid modifier")
)

// HPStatus describes the hit point state of a character.
type HPStatus string

const (
	HPHealthy  HPStatus = "healthy"
	HPDisabled HPStatus = "disabled" // exactly 0 HP
	HPDying    HPStatus = "dying"
	HPDead     HPStatus = "dead"
)

// Data is the plain, persistable form of a Character.
type Data struct {
	ID        uuid.UUID          `json:"id" yaml:"id"`
	Name      string             `json:"name" yaml:"name"`
	Class     string             `json:"class" yaml:"class"`
	Level     int32              `json:"level" yaml:"level"`
	Base      bonus.AttributeSet `json:"base" yaml:"base"`
	MaxHP     int32              `json:"max_hp" yaml:"max_hp"`
	CurrentHP int32              `json:"current_hp" yaml:"current_hp"`
	TempHP    int32              `json:"temp_hp" yaml:"temp_hp"`
	Buffs     []Buff             `json:"buffs" yaml:"buffs"`
	Gear      []Gear             `json:"gear" yaml:"gear"`
	Abilities []ability.Ability  `json:"abilities" yaml:"abilities"`
	CreatedAt time.Time          `json:"created_at" yaml:"-"`
	UpdatedAt time.Time          `json:"updated_at" yaml:"-"`
}

// Character: персонаж игрока: базовые характеристики плюс всё, что на нём
// сейчас висит (баффы, снаряжение, боевые способности).
//
// Thread-safe: all methods are protected by sync.RWMutex.
type Character struct {
	mu sync.RWMutex

	id        uuid.UUID
	name      string
	class     string
	level     int32
	base      bonus.AttributeSet
	maxHP     int32
	currentHP int32
	tempHP    int32

	buffs     []Buff
	gear      []Gear
	abilities []ability.Ability

	createdAt time.Time
	updatedAt time.Time
}

// NewCharacter создаёт нового персонажа с полным HP.
func NewCharacter(name, class string, level, maxHP int32, base bonus.AttributeSet) (*Character, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("character name: %w", ErrInvalidName)
	}
	if level < 1 {
		level = 1
	}
	if maxHP < 1 {
		maxHP = 1
	}
	now := time.Now().UTC()
	return &Character{
		id:        uuid.New(),
		name:      name,
		class:     class,
		level:     level,
		base:      base.Clone(),
		maxHP:     maxHP,
		currentHP: maxHP,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Restore rebuilds a Character from persisted data.
func Restore(d Data) (*Character, error) {
	if strings.TrimSpace(d.Name) == "" {
		return nil, fmt.Errorf("character name: %w", ErrInvalidName)
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	c := &Character{
		id:        d.ID,
		name:      d.Name,
		class:     d.Class,
		level:     d.Level,
		base:      d.Base.Clone(),
		maxHP:     d.MaxHP,
		currentHP: d.CurrentHP,
		tempHP:    d.TempHP,
		buffs:     cloneBuffs(d.Buffs),
		gear:      cloneGear(d.Gear),
		abilities: cloneAbilities(d.Abilities),
		createdAt: d.CreatedAt,
		updatedAt: d.UpdatedAt,
	}
	uniqueIDs(c.buffs, func(b *Buff) *string { return &b.ID })
	uniqueIDs(c.gear, func(g *Gear) *string { return &g.ID })
	uniqueIDs(c.abilities, func(a *ability.Ability) *string { return &a.ID })
	return c, nil
}

// Snapshot returns an independent copy of the character's data.
func (c *Character) Snapshot() Data {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Data{
		ID:        c.id,
		Name:      c.name,
		Class:     c.class,
		Level:     c.level,
		Base:      c.base.Clone(),
		MaxHP:     c.maxHP,
		CurrentHP: c.currentHP,
		TempHP:    c.tempHP,
		Buffs:     cloneBuffs(c.buffs),
		Gear:      cloneGear(c.gear),
		Abilities: cloneAbilities(c.abilities),
		CreatedAt: c.createdAt,
		UpdatedAt: c.updatedAt,
	}
}

// ID возвращает идентификатор персонажа.
func (c *Character) ID() uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// Name возвращает имя персонажа.
func (c *Character) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// Level возвращает уровень персонажа.
func (c *Character) Level() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.level
}

// Base returns a copy of the base attribute set.
func (c *Character) Base() bonus.AttributeSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base.Clone()
}

// SetBaseStat sets a single base attribute.
func (c *Character) SetBaseStat(s bonus.Stat, v int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.base == nil {
		c.base = make(bonus.AttributeSet)
	}
	c.base[s] = v
	c.touch()
}

// Modifiers collects the modifiers of everything currently active:
// buffs, equipped gear and toggled-on abilities, in that order.
// Ability penalties are not included, see Penalties.
func (c *Character) Modifiers() []bonus.Modifier {
	c.mu.RLock()
	defer c.mu.RUnlock()

	mods := c.itemModifiersLocked()
	bab := c.effectiveBABLocked(mods)
	for _, a := range c.abilities {
		mods = append(mods, a.Modifiers(bab)...)
	}
	return mods
}

// Penalties collects the trade-off penalties of toggled-on abilities.
func (c *Character) Penalties() []bonus.Penalty {
	c.mu.RLock()
	defer c.mu.RUnlock()

	bab := c.effectiveBABLocked(c.itemModifiersLocked())
	var out []bonus.Penalty
	for _, a := range c.abilities {
		out = append(out, a.Penalties(bab)...)
	}
	return out
}

// itemModifiersLocked returns buff and equipped gear modifiers. Must be called with mu held.
func (c *Character) itemModifiersLocked() []bonus.Modifier {
	mods := make([]bonus.Modifier, 0, len(c.buffs)+len(c.gear)+len(c.abilities))
	for _, b := range c.buffs {
		mods = append(mods, b.Modifier())
	}
	for _, g := range c.gear {
		if g.Equipped {
			mods = append(mods, g.Modifier())
		}
	}
	return mods
}

// effectiveBABLocked is the BAB that trade-off abilities scale with: base BAB
// plus whatever buffs and gear grant to it. Abilities never feed it.
func (c *Character) effectiveBABLocked(items []bonus.Modifier) int {
	base := bonus.AttributeSet{bonus.BAB: c.base.Get(bonus.BAB)}
	return bonus.Aggregate(base, items).Final.Get(bonus.BAB)
}

// Sheet is the computed view of a character.
type Sheet struct {
	Character uuid.UUID          `json:"character"`
	Name      string             `json:"name"`
	Result    bonus.Result       `json:"result"`
	Derived   bonus.DerivedStats `json:"derived"`
	HP        HPView             `json:"hp"`
}

// HPView is the hit point block of a Sheet.
type HPView struct {
	Current int32    `json:"current"`
	Max     int32    `json:"max"`
	Temp    int32    `json:"temp"`
	Status  HPStatus `json:"status"`
}

// Sheet aggregates the character's modifiers through agg, then adds ability
// penalties on top. A nil agg falls back to a plain bonus.Aggregate.
func (c *Character) Sheet(agg *bonus.Aggregator) Sheet {
	base := c.Base()
	mods := c.Modifiers()

	res := agg.Aggregate(base, mods)
	res.ApplyPenalties(c.Penalties())
	derived := bonus.Derive(res.Final)

	c.mu.RLock()
	defer c.mu.RUnlock()
	return Sheet{
		Character: c.id,
		Name:      c.name,
		Result:    res,
		Derived:   derived,
		HP: HPView{
			Current: c.currentHP,
			Max:     c.maxHP,
			Temp:    c.tempHP,
			Status:  c.statusLocked(res.Final.Get(bonus.Constitution)),
		},
	}
}

// touch updates the modification timestamp. Must be called with mu held.
func (c *Character) touch() {
	c.updatedAt = time.Now().UTC()
}

// newEntryID generates the id of a new buff, gear item or ability.
// Ids sent by clients are never trusted.
func newEntryID() string {
	return uuid.NewString()
}

// uniqueIDs gives a fresh id to every entry whose id is empty or repeated.
func uniqueIDs[T any](items []T, id func(*T) *string) {
	seen := make(map[string]struct{}, len(items))
	for i := range items {
		p := id(&items[i])
		if _, dup := seen[*p]; *p == "" || dup {
			*p = newEntryID()
		}
		seen[*p] = struct{}{}
	}
}

func cloneAbilities(in []ability.Ability) []ability.Ability {
	if in == nil {
		return nil
	}
	out := slices.Clone(in)
	for i := range out {
		out[i].Static = cloneEffects(out[i].Static)
	}
	return out
}
