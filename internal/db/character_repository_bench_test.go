package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/udisondev/pathtracker/internal/ability"
	"github.com/udisondev/pathtracker/internal/bonus"
	"github.com/udisondev/pathtracker/internal/model"
)

// benchCharacter создаёт персонажа с типичным боевым набором (8 баффов, 6 предметов, 3 способности).
func benchCharacter(b *testing.B) *model.Character {
	b.Helper()
	c, err := model.NewCharacter("BenchHero", "Fighter", 10, 95, bonus.AttributeSet{
		bonus.Strength:  18,
		bonus.Dexterity: 14,
		bonus.BAB:       10,
	})
	if err != nil {
		b.Fatalf("creating character: %v", err)
	}
	for i := range 8 {
		if _, err := c.AddBuff(model.Buff{
			Name:            fmt.Sprintf("buff-%d", i),
			Type:            bonus.AllTypes()[i],
			Effects:         map[bonus.Stat]int{bonus.Attack: 1 + i%3, bonus.AC: 1},
			RemainingRounds: 10,
		}); err != nil {
			b.Fatalf("adding buff: %v", err)
		}
	}
	for i := range 6 {
		id, err := c.AddGear(model.Gear{
			Name:    fmt.Sprintf("item-%d", i),
			Slot:    fmt.Sprintf("slot-%d", i),
			Type:    bonus.TypeEnhancement,
			Effects: map[bonus.Stat]int{bonus.AC: i + 1},
		})
		if err != nil {
			b.Fatalf("adding gear: %v", err)
		}
		if err := c.SetEquipped(id, true); err != nil {
			b.Fatalf("equipping gear: %v", err)
		}
	}
	for _, k := range []ability.Kind{ability.KindPowerAttack, ability.KindRage, ability.KindCombatExpertise} {
		if _, err := c.AddAbility(ability.Ability{Name: k.String(), Kind: k, Active: true}); err != nil {
			b.Fatalf("adding ability: %v", err)
		}
	}
	return c
}

// Benchmark LoadByID. HOT PATH: каждый запрос листа персонажа
func BenchmarkCharacterRepository_LoadByID(b *testing.B) {
	pool := setupTestDB(b)
	repo := NewCharacterRepository(pool)
	ctx := context.Background()

	c := benchCharacter(b)
	if err := repo.Create(ctx, c); err != nil {
		b.Fatalf("creating test character: %v", err)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := repo.LoadByID(ctx, c.ID()); err != nil {
				b.Errorf("LoadByID failed: %v", err)
			}
		}
	})
}

// Benchmark Save: каждое боевое действие (баффы, урон, раунд)
func BenchmarkCharacterRepository_Save(b *testing.B) {
	pool := setupTestDB(b)
	repo := NewCharacterRepository(pool)
	ctx := context.Background()

	c := benchCharacter(b)
	if err := repo.Create(ctx, c); err != nil {
		b.Fatalf("creating test character: %v", err)
	}

	b.ResetTimer()
	for b.Loop() {
		c.Damage(1)
		if err := repo.Save(ctx, c); err != nil {
			b.Fatalf("Save failed: %v", err)
		}
	}
}
