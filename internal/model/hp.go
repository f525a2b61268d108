package model

import (
	"math"

	"github.com/udisondev/pathtracker/internal/bonus"
)

// CurrentHP возвращает текущее HP.
func (c *Character) CurrentHP() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentHP
}

// MaxHP возвращает максимальное HP.
func (c *Character) MaxHP() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxHP
}

// TempHP возвращает временные HP.
func (c *Character) TempHP() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tempHP
}

// SetMaxHP устанавливает максимальное HP и корректирует текущее если нужно.
func (c *Character) SetMaxHP(maxHP int32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if maxHP < 1 {
		maxHP = 1
	}
	c.maxHP = maxHP

	// Если текущее HP больше нового максимума, обрезаем
	if c.currentHP > c.maxHP {
		c.currentHP = c.maxHP
	}
	c.touch()
}

// Damage applies damage. Temporary HP absorb it first; current HP may go
// negative, saturating at math.MinInt32. Non-positive amounts are ignored.
// Returns the new current HP.
func (c *Character) Damage(amount int32) int32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if amount <= 0 {
		return c.currentHP
	}
	if c.tempHP > 0 {
		absorbed := min(c.tempHP, amount)
		c.tempHP -= absorbed
		amount -= absorbed
	}
	c.currentHP = int32(max(int64(c.currentHP)-int64(amount), math.MinInt32))
	c.touch()
	return c.currentHP
}

// Heal restores HP up to the maximum. Returns the new current HP.
func (c *Character) Heal(amount int32) int32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if amount <= 0 {
		return c.currentHP
	}
	if c.currentHP >= c.maxHP {
		return c.currentHP
	}
	c.currentHP = int32(min(int64(c.currentHP)+int64(amount), int64(c.maxHP)))
	c.touch()
	return c.currentHP
}

// SetTempHP grants temporary HP. Temporary HP from different sources do not
// stack: the larger pool is kept.
func (c *Character) SetTempHP(amount int32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if amount > c.tempHP {
		c.tempHP = amount
		c.touch()
	}
}

// Status returns the HP state using the character's final Constitution as
// the death threshold.
func (c *Character) Status(final bonus.AttributeSet) HPStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statusLocked(final.Get(bonus.Constitution))
}

// statusLocked must be called with mu held.
func (c *Character) statusLocked(con int) HPStatus {
	switch {
	case c.currentHP > 0:
		return HPHealthy
	case c.currentHP == 0:
		return HPDisabled
	case int(c.currentHP) <= -con:
		return HPDead
	default:
		return HPDying
	}
}
