package model

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/udisondev/pathtracker/internal/bonus"
)

// PermanentDuration marks a buff that never expires on its own.
const PermanentDuration int32 = -1

// Buff is a temporary effect with a duration in combat rounds.
type Buff struct {
	ID              string             `json:"id" yaml:"id"`
	Name            string             `json:"name" yaml:"name"`
	Type            bonus.BonusType    `json:"type" yaml:"type"`
	Effects         map[bonus.Stat]int `json:"effects" yaml:"effects"`
	RemainingRounds int32              `json:"remaining_rounds" yaml:"remaining_rounds"`
}

// IsPermanent reports whether the buff ignores round ticks.
func (b *Buff) IsPermanent() bool {
	return b.RemainingRounds < 0
}

// Tick decrements remaining rounds.
// Returns true if the buff is still active, false if expired.
func (b *Buff) Tick(rounds int32) bool {
	if b.IsPermanent() {
		return true
	}
	b.RemainingRounds -= rounds
	return b.RemainingRounds > 0
}

// Modifier converts the buff into an engine input.
func (b Buff) Modifier() bonus.Modifier {
	return bonus.Modifier{
		Name:    b.Name,
		Type:    b.Type,
		Effects: maps.Clone(b.Effects),
		Source:  bonus.SourceBuff,
	}
}

// AddBuff adds a buff. A buff with the same name (case-insensitive) is
// replaced and its duration refreshed. Returns the stored buff id.
func (c *Character) AddBuff(b Buff) (string, error) {
	if strings.TrimSpace(b.Name) == "" {
		return "", fmt.Errorf("buff name: %w", ErrInvalidName)
	}
	if b.Type == "" {
		b.Type = bonus.TypeUntyped
	}
	if err := b.Modifier().Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidModifier, err)
	}
	if b.RemainingRounds == 0 {
		b.RemainingRounds = PermanentDuration
	}
	b.Effects = maps.Clone(b.Effects)

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, existing := range c.buffs {
		if strings.EqualFold(existing.Name, b.Name) {
			b.ID = existing.ID
			c.buffs[i] = b
			c.touch()
			return b.ID, nil
		}
	}

	b.ID = newEntryID()
	c.buffs = append(c.buffs, b)
	c.touch()
	return b.ID, nil
}

// RemoveBuff removes a buff by id.
func (c *Character) RemoveBuff(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := slices.IndexFunc(c.buffs, func(b Buff) bool { return b.ID == id })
	if i < 0 {
		return fmt.Errorf("buff %s: %w", id, ErrNotFound)
	}
	c.buffs = slices.Delete(c.buffs, i, i+1)
	c.touch()
	return nil
}

// Buffs returns a copy of active buffs.
func (c *Character) Buffs() []Buff {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneBuffs(c.buffs)
}

// TickRounds advances every buff by rounds and drops the expired ones.
// Returns the names of buffs that expired.
func (c *Character) TickRounds(rounds int32) []string {
	if rounds <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var expired []string
	n := 0
	for _, b := range c.buffs {
		if !b.Tick(rounds) {
			expired = append(expired, b.Name)
			continue
		}
		c.buffs[n] = b
		n++
	}
	clear(c.buffs[n:])
	c.buffs = c.buffs[:n]
	c.touch()
	return expired
}

func cloneBuffs(in []Buff) []Buff {
	if in == nil {
		return nil
	}
	out := slices.Clone(in)
	for i := range out {
		out[i].Effects = cloneEffects(out[i].Effects)
	}
	return out
}

func cloneEffects(in map[bonus.Stat]int) map[bonus.Stat]int {
	return maps.Clone(in)
}
