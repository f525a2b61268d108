package model

import (
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/pathtracker/internal/ability"
	"github.com/udisondev/pathtracker/internal/bonus"
)

func newTestCharacter(t *testing.T) *Character {
	t.Helper()
	c, err := NewCharacter("Valeros", "Fighter", 5, 44, bonus.AttributeSet{
		bonus.Strength:     16,
		bonus.Dexterity:    14,
		bonus.Constitution: 14,
		bonus.Intelligence: 10,
		bonus.Wisdom:       12,
		bonus.Charisma:     8,
		bonus.BAB:          5,
	})
	require.NoError(t, err, "NewCharacter")
	return c
}

func TestNewCharacter_Validation(t *testing.T) {
	_, err := NewCharacter("  ", "Fighter", 1, 10, nil)
	assert.ErrorIs(t, err, ErrInvalidName)

	c, err := NewCharacter("Kyra", "Cleric", 0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), c.Level())
	assert.Equal(t, int32(1), c.MaxHP())
	assert.NotEqual(t, uuid.Nil, c.ID())
}

func TestCharacter_BaseIsCopied(t *testing.T) {
	base := bonus.AttributeSet{bonus.Strength: 12}
	c, err := NewCharacter("Merisiel", "Rogue", 1, 8, base)
	require.NoError(t, err)

	base[bonus.Strength] = 30
	assert.Equal(t, 12, c.Base()[bonus.Strength])

	got := c.Base()
	got[bonus.Strength] = 1
	assert.Equal(t, 12, c.Base()[bonus.Strength])
}

func TestCharacter_AddBuff_ReplacesSameName(t *testing.T) {
	c := newTestCharacter(t)

	id1, err := c.AddBuff(Buff{Name: "Bless", Type: bonus.TypeMorale, Effects: map[bonus.Stat]int{bonus.Attack: 1}, RemainingRounds: 3})
	require.NoError(t, err)
	id2, err := c.AddBuff(Buff{Name: "bless", Type: bonus.TypeMorale, Effects: map[bonus.Stat]int{bonus.Attack: 1}, RemainingRounds: 10})
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	buffs := c.Buffs()
	require.Len(t, buffs, 1)
	assert.Equal(t, int32(10), buffs[0].RemainingRounds)
}

func TestCharacter_AddBuff_Invalid(t *testing.T) {
	c := newTestCharacter(t)

	_, err := c.AddBuff(Buff{Name: "", Effects: map[bonus.Stat]int{bonus.Attack: 1}})
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = c.AddBuff(Buff{Name: "Weird", Type: "weird", Effects: map[bonus.Stat]int{bonus.Attack: 1}})
	assert.ErrorIs(t, err, ErrInvalidModifier)
	assert.ErrorIs(t, err, bonus.ErrUnknownType)

	_, err = c.AddBuff(Buff{Name: "Empty", Type: bonus.TypeLuck})
	assert.ErrorIs(t, err, bonus.ErrNoEffects)
}

func TestCharacter_AddBuff_DefaultsPermanentUntyped(t *testing.T) {
	c := newTestCharacter(t)

	_, err := c.AddBuff(Buff{Name: "Blessing of Fervor", Effects: map[bonus.Stat]int{bonus.Attack: 2}})
	require.NoError(t, err)

	b := c.Buffs()[0]
	assert.True(t, b.IsPermanent())
	assert.Equal(t, bonus.TypeUntyped, b.Type)
}

func TestCharacter_TickRounds(t *testing.T) {
	c := newTestCharacter(t)
	_, err := c.AddBuff(Buff{Name: "Short", Type: bonus.TypeLuck, Effects: map[bonus.Stat]int{bonus.Wisdom: 2}, RemainingRounds: 1})
	require.NoError(t, err)
	_, err = c.AddBuff(Buff{Name: "Long", Type: bonus.TypeMorale, Effects: map[bonus.Stat]int{bonus.Will: 2}, RemainingRounds: 3})
	require.NoError(t, err)
	_, err = c.AddBuff(Buff{Name: "Forever", Type: bonus.TypeInsight, Effects: map[bonus.Stat]int{bonus.AC: 1}, RemainingRounds: PermanentDuration})
	require.NoError(t, err)

	expired := c.TickRounds(1)
	assert.Equal(t, []string{"Short"}, expired)
	assert.Len(t, c.Buffs(), 2)

	expired = c.TickRounds(5)
	assert.Equal(t, []string{"Long"}, expired)

	buffs := c.Buffs()
	require.Len(t, buffs, 1)
	assert.Equal(t, "Forever", buffs[0].Name)

	assert.Nil(t, c.TickRounds(0))
}

func TestCharacter_RemoveBuff(t *testing.T) {
	c := newTestCharacter(t)
	id, err := c.AddBuff(Buff{Name: "Haste", Type: bonus.TypeDodge, Effects: map[bonus.Stat]int{bonus.AC: 1}, RemainingRounds: 5})
	require.NoError(t, err)

	require.NoError(t, c.RemoveBuff(id))
	assert.Empty(t, c.Buffs())
	assert.ErrorIs(t, c.RemoveBuff(id), ErrNotFound)
}

func TestCharacter_GearEquipSlots(t *testing.T) {
	c := newTestCharacter(t)

	ring1, err := c.AddGear(Gear{Name: "Ring of Protection +1", Slot: "ring", Type: bonus.TypeDeflection, Effects: map[bonus.Stat]int{bonus.AC: 1}})
	require.NoError(t, err)
	ring2, err := c.AddGear(Gear{Name: "Ring of Protection +2", Slot: "ring", Type: bonus.TypeDeflection, Effects: map[bonus.Stat]int{bonus.AC: 2}})
	require.NoError(t, err)

	assert.Empty(t, c.Modifiers(), "unequipped gear contributes nothing")

	require.NoError(t, c.SetEquipped(ring1, true))
	require.NoError(t, c.SetEquipped(ring2, true))

	gear := c.Gear()
	assert.False(t, gear[0].Equipped, "same slot is swapped out")
	assert.True(t, gear[1].Equipped)

	mods := c.Modifiers()
	require.Len(t, mods, 1)
	assert.Equal(t, bonus.SourceGear, mods[0].Source)

	assert.ErrorIs(t, c.SetEquipped("missing", true), ErrNotFound)
	require.NoError(t, c.RemoveGear(ring2))
	assert.ErrorIs(t, c.RemoveGear(ring2), ErrNotFound)
}

func TestCharacter_ToggleAbility(t *testing.T) {
	c := newTestCharacter(t)
	id, err := c.AddAbility(ability.Ability{Name: "Power Attack", Kind: ability.KindPowerAttack})
	require.NoError(t, err)

	active, err := c.ToggleAbility(id)
	require.NoError(t, err)
	assert.True(t, active)

	mods := c.Modifiers()
	require.Len(t, mods, 1)
	// BAB 5 → -2 attack / +4 damage
	assert.Equal(t, map[bonus.Stat]int{bonus.Damage: 4}, mods[0].Effects)
	pens := c.Penalties()
	require.Len(t, pens, 1)
	assert.Equal(t, bonus.Penalty{Name: "Power Attack", Stat: bonus.Attack, Value: -2, Source: bonus.SourceAbility}, pens[0])

	active, err = c.ToggleAbility(id)
	require.NoError(t, err)
	assert.False(t, active)
	assert.Empty(t, c.Modifiers())
	assert.Empty(t, c.Penalties())

	_, err = c.ToggleAbility("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCharacter_AddAbility_StaticValidated(t *testing.T) {
	c := newTestCharacter(t)

	_, err := c.AddAbility(ability.Ability{Name: "Empty", Kind: ability.KindStatic})
	assert.ErrorIs(t, err, ErrInvalidModifier)

	_, err = c.AddAbility(ability.Ability{Name: "Weapon Focus", Kind: ability.KindStatic, Static: map[bonus.Stat]int{bonus.Attack: 1}})
	assert.NoError(t, err)
}

func TestCharacter_Sheet(t *testing.T) {
	c := newTestCharacter(t)
	_, err := c.AddBuff(Buff{Name: "Bull's Strength", Type: bonus.TypeEnhancement, Effects: map[bonus.Stat]int{bonus.Strength: 4}, RemainingRounds: 50})
	require.NoError(t, err)
	beltID, err := c.AddGear(Gear{Name: "Belt of Giant Strength +2", Slot: "belt", Type: bonus.TypeEnhancement, Effects: map[bonus.Stat]int{bonus.Strength: 2}})
	require.NoError(t, err)
	require.NoError(t, c.SetEquipped(beltID, true))
	rageID, err := c.AddAbility(ability.Ability{Name: "Rage", Kind: ability.KindRage})
	require.NoError(t, err)
	_, err = c.ToggleAbility(rageID)
	require.NoError(t, err)

	sheet := c.Sheet(bonus.NewAggregator())

	// 16 + enhancement 4 (belt discarded) + morale 4
	assert.Equal(t, 24, sheet.Result.Final[bonus.Strength])
	assert.Len(t, sheet.Result.Details[bonus.Strength], 2)
	// 10 + dex 2 - 2 rage
	assert.Equal(t, 10, sheet.Derived.AC)
	// bab 5 + str 7
	assert.Equal(t, 12, sheet.Derived.CMB)
	assert.Equal(t, HPHealthy, sheet.HP.Status)
	assert.Equal(t, int32(44), sheet.HP.Max)
}

func activate(t *testing.T, c *Character, name string, kind ability.Kind) {
	t.Helper()
	_, err := c.AddAbility(ability.Ability{Name: name, Kind: kind, Active: true})
	require.NoError(t, err)
}

func TestCharacter_Sheet_PenaltiesAddUp(t *testing.T) {
	tests := []struct {
		name       string
		kinds      []ability.Kind
		wantAttack int
		wantAC     int
	}{
		// BAB 4: power attack -2, charge +2
		{"power attack and charge", []ability.Kind{ability.KindPowerAttack, ability.KindCharge}, 0, -2},
		// rage -2, charge -2
		{"rage and charge", []ability.Kind{ability.KindRage, ability.KindCharge}, 2, -4},
		{"power attack, charge and rage", []ability.Kind{ability.KindPowerAttack, ability.KindCharge, ability.KindRage}, 0, -4},
		{"fighting defensively and power attack", []ability.Kind{ability.KindFightingDefensively, ability.KindPowerAttack}, -6, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCharacter("Amiri", "Barbarian", 4, 38, bonus.AttributeSet{bonus.Dexterity: 14, bonus.BAB: 4})
			require.NoError(t, err)
			for _, k := range tt.kinds {
				activate(t, c, k.String(), k)
			}

			sheet := c.Sheet(bonus.NewAggregator(bonus.WithCache(4)))

			assert.Equal(t, tt.wantAttack, sheet.Result.Final[bonus.Attack])
			assert.Equal(t, tt.wantAC, sheet.Result.Final[bonus.AC])
			// 10 + dex 2 + ac channel
			assert.Equal(t, 12+tt.wantAC, sheet.Derived.AC)
		})
	}
}

func TestCharacter_Sheet_PenaltyRecords(t *testing.T) {
	c, err := NewCharacter("Amiri", "Barbarian", 4, 38, bonus.AttributeSet{bonus.BAB: 4})
	require.NoError(t, err)
	activate(t, c, "Power Attack", ability.KindPowerAttack)
	activate(t, c, "Charge", ability.KindCharge)

	agg := bonus.NewAggregator(bonus.WithCache(4))
	first := c.Sheet(agg)
	second := c.Sheet(agg)

	attack := second.Result.Details[bonus.Attack]
	require.Len(t, attack, 2)
	assert.Equal(t, "Charge", attack[0].Name)
	assert.Equal(t, 2, attack[0].Value)
	assert.Equal(t, "Power Attack", attack[1].Name)
	assert.Equal(t, -2, attack[1].Value)
	assert.Equal(t, first.Result, second.Result, "cached results must not collect penalties twice")
}

func TestCharacter_TradePenaltyUsesBuffedBAB(t *testing.T) {
	c, err := NewCharacter("Seelah", "Paladin", 3, 30, bonus.AttributeSet{bonus.BAB: 3})
	require.NoError(t, err)
	activate(t, c, "Power Attack", ability.KindPowerAttack)

	assert.Equal(t, -1, c.Penalties()[0].Value)

	_, err = c.AddBuff(Buff{Name: "Divine Favor", Type: bonus.TypeInsight, Effects: map[bonus.Stat]int{bonus.BAB: 1}, RemainingRounds: 10})
	require.NoError(t, err)

	// BAB 3 + 1 crosses the +4 step
	assert.Equal(t, -2, c.Penalties()[0].Value)
	assert.Equal(t, 4, c.Modifiers()[1].Effects[bonus.Damage])
	assert.Equal(t, 4, c.Sheet(nil).Derived.BAB)
}

func TestCharacter_EntryIDsAreServerSide(t *testing.T) {
	c := newTestCharacter(t)

	id1, err := c.AddBuff(Buff{ID: "x", Name: "Bless", Type: bonus.TypeMorale, Effects: map[bonus.Stat]int{bonus.Attack: 1}})
	require.NoError(t, err)
	id2, err := c.AddBuff(Buff{ID: "x", Name: "Haste", Type: bonus.TypeDodge, Effects: map[bonus.Stat]int{bonus.AC: 1}})
	require.NoError(t, err)
	assert.NotEqual(t, "x", id1)
	assert.NotEqual(t, id1, id2)

	g1, err := c.AddGear(Gear{ID: "x", Name: "Ring", Slot: "ring", Type: bonus.TypeDeflection, Effects: map[bonus.Stat]int{bonus.AC: 1}})
	require.NoError(t, err)
	g2, err := c.AddGear(Gear{ID: "x", Name: "Cloak", Slot: "shoulders", Type: bonus.TypeCompetence, Effects: map[bonus.Stat]int{bonus.Will: 1}})
	require.NoError(t, err)
	assert.NotEqual(t, g1, g2)

	a1, err := c.AddAbility(ability.Ability{ID: "x", Name: "Rage", Kind: ability.KindRage})
	require.NoError(t, err)
	a2, err := c.AddAbility(ability.Ability{ID: "x", Name: "Charge", Kind: ability.KindCharge})
	require.NoError(t, err)
	assert.NotEqual(t, a1, a2)

	require.NoError(t, c.RemoveBuff(id1))
	require.Len(t, c.Buffs(), 1)
	assert.Equal(t, "Haste", c.Buffs()[0].Name)
}

func TestRestore_DuplicateEntryIDs(t *testing.T) {
	d := newTestCharacter(t).Snapshot()
	d.Buffs = []Buff{
		{ID: "dup", Name: "Bless", Type: bonus.TypeMorale, Effects: map[bonus.Stat]int{bonus.Attack: 1}, RemainingRounds: 5},
		{ID: "dup", Name: "Haste", Type: bonus.TypeDodge, Effects: map[bonus.Stat]int{bonus.AC: 1}, RemainingRounds: 5},
		{Name: "Shield", Type: bonus.TypeShield, Effects: map[bonus.Stat]int{bonus.AC: 4}, RemainingRounds: 5},
	}

	c, err := Restore(d)
	require.NoError(t, err)

	buffs := c.Buffs()
	require.Len(t, buffs, 3)
	assert.Equal(t, "dup", buffs[0].ID, "first occurrence keeps its id")
	assert.NotEqual(t, "dup", buffs[1].ID)
	assert.NotEmpty(t, buffs[2].ID)
	assert.NotEqual(t, buffs[1].ID, buffs[2].ID)
	assert.Equal(t, "dup", d.Buffs[1].ID, "input is not mutated")
}

func TestCharacter_HitPoints(t *testing.T) {
	c := newTestCharacter(t)
	final := bonus.AttributeSet{bonus.Constitution: 14}

	c.SetTempHP(5)
	c.SetTempHP(3)
	assert.Equal(t, int32(5), c.TempHP(), "temp HP does not stack")

	assert.Equal(t, int32(41), c.Damage(8))
	assert.Equal(t, int32(0), c.TempHP())
	assert.Equal(t, int32(41), c.Damage(-3))

	assert.Equal(t, int32(44), c.Heal(100))

	c.Damage(44)
	assert.Equal(t, HPDisabled, c.Status(final))
	c.Damage(5)
	assert.Equal(t, HPDying, c.Status(final))
	c.Damage(9)
	assert.Equal(t, HPDead, c.Status(final))

	c.SetMaxHP(10)
	assert.Equal(t, int32(10), c.MaxHP())
}

func TestCharacter_HitPointsSaturate(t *testing.T) {
	final := bonus.AttributeSet{bonus.Constitution: 10}

	c, err := NewCharacter("Merisiel", "Rogue", 1, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(10), c.Heal(math.MaxInt32))
	assert.Equal(t, HPHealthy, c.Status(final))

	c.Damage(3)
	assert.Equal(t, int32(10), c.Heal(math.MaxInt32))

	c.Damage(math.MaxInt32)
	assert.Equal(t, int32(math.MinInt32), c.Damage(math.MaxInt32))
	assert.Equal(t, HPDead, c.Status(final))

	assert.Equal(t, int32(-1), c.Heal(math.MaxInt32))
	assert.Equal(t, int32(10), c.Heal(math.MaxInt32))
}

func TestCharacter_SnapshotRestore(t *testing.T) {
	c := newTestCharacter(t)
	_, err := c.AddBuff(Buff{Name: "Heroism", Type: bonus.TypeMorale, Effects: map[bonus.Stat]int{bonus.Attack: 2}, RemainingRounds: 10})
	require.NoError(t, err)
	_, err = c.AddAbility(ability.Ability{Name: "Expertise", Kind: ability.KindCombatExpertise, Active: true})
	require.NoError(t, err)

	snap := c.Snapshot()
	restored, err := Restore(snap)
	require.NoError(t, err)

	assert.Equal(t, snap, restored.Snapshot())

	// Snapshot must not alias internal state.
	snap.Buffs[0].Effects[bonus.Attack] = 99
	assert.Equal(t, 2, c.Buffs()[0].Effects[bonus.Attack])

	_, err = Restore(Data{})
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestCharacter_ConcurrentAccess(t *testing.T) {
	c := newTestCharacter(t)
	agg := bonus.NewAggregator(bonus.WithCache(16))

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = c.AddBuff(Buff{Name: "Bless", Type: bonus.TypeMorale, Effects: map[bonus.Stat]int{bonus.Attack: 1}, RemainingRounds: int32(i + 1)})
			c.TickRounds(1)
		}()
		go func() {
			defer wg.Done()
			_ = c.Sheet(agg)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, len(c.Buffs()), 1)
}
