package model

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/udisondev/pathtracker/internal/ability"
	"github.com/udisondev/pathtracker/internal/bonus"
)

// Gear is an item a character owns. Only equipped gear contributes bonuses.
type Gear struct {
	ID       string             `json:"id" yaml:"id"`
	Name     string             `json:"name" yaml:"name"`
	Slot     string             `json:"slot" yaml:"slot"`
	Type     bonus.BonusType    `json:"type" yaml:"type"`
	Effects  map[bonus.Stat]int `json:"effects" yaml:"effects"`
	Equipped bool               `json:"equipped" yaml:"equipped"`
}

// Modifier converts the item into an engine input.
func (g Gear) Modifier() bonus.Modifier {
	return bonus.Modifier{
		Name:    g.Name,
		Type:    g.Type,
		Effects: maps.Clone(g.Effects),
		Source:  bonus.SourceGear,
	}
}

// AddGear adds an item to the character's inventory. Returns the item id.
func (c *Character) AddGear(g Gear) (string, error) {
	if strings.TrimSpace(g.Name) == "" {
		return "", fmt.Errorf("gear name: %w", ErrInvalidName)
	}
	if g.Type == "" {
		g.Type = bonus.TypeUntyped
	}
	if err := g.Modifier().Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidModifier, err)
	}
	g.ID = newEntryID()
	g.Effects = maps.Clone(g.Effects)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gear = append(c.gear, g)
	c.touch()
	return g.ID, nil
}

// RemoveGear removes an item by id.
func (c *Character) RemoveGear(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := slices.IndexFunc(c.gear, func(g Gear) bool { return g.ID == id })
	if i < 0 {
		return fmt.Errorf("gear %s: %w", id, ErrNotFound)
	}
	c.gear = slices.Delete(c.gear, i, i+1)
	c.touch()
	return nil
}

// SetEquipped equips or unequips an item. Equipping an item into an occupied
// slot unequips whatever was there. Items with an empty slot never conflict.
func (c *Character) SetEquipped(id string, equipped bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := slices.IndexFunc(c.gear, func(g Gear) bool { return g.ID == id })
	if i < 0 {
		return fmt.Errorf("gear %s: %w", id, ErrNotFound)
	}
	if equipped && c.gear[i].Slot != "" {
		for j := range c.gear {
			if j != i && c.gear[j].Equipped && c.gear[j].Slot == c.gear[i].Slot {
				c.gear[j].Equipped = false
			}
		}
	}
	c.gear[i].Equipped = equipped
	c.touch()
	return nil
}

// Gear returns a copy of the inventory.
func (c *Character) Gear() []Gear {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneGear(c.gear)
}

// AddAbility registers an ability. Returns the ability id.
func (c *Character) AddAbility(a ability.Ability) (string, error) {
	if strings.TrimSpace(a.Name) == "" {
		return "", fmt.Errorf("ability name: %w", ErrInvalidName)
	}
	if a.Kind == ability.KindStatic {
		m := bonus.Modifier{Name: a.Name, Type: a.Type, Effects: a.Static, Source: bonus.SourceAbility}
		if m.Type == "" {
			m.Type = bonus.TypeUntyped
		}
		if err := m.Validate(); err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidModifier, err)
		}
	}
	a.ID = newEntryID()
	a.Static = maps.Clone(a.Static)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.abilities = append(c.abilities, a)
	c.touch()
	return a.ID, nil
}

// ToggleAbility flips an ability on or off and returns its new state.
func (c *Character) ToggleAbility(id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := slices.IndexFunc(c.abilities, func(a ability.Ability) bool { return a.ID == id })
	if i < 0 {
		return false, fmt.Errorf("ability %s: %w", id, ErrNotFound)
	}
	c.abilities[i].Active = !c.abilities[i].Active
	c.touch()
	return c.abilities[i].Active, nil
}

// Abilities returns a copy of the character's abilities.
func (c *Character) Abilities() []ability.Ability {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneAbilities(c.abilities)
}

func cloneGear(in []Gear) []Gear {
	if in == nil {
		return nil
	}
	out := slices.Clone(in)
	for i := range out {
		out[i].Effects = cloneEffects(out[i].Effects)
	}
	return out
}
