// Package tracker is the character and combat tracking service: it loads
// characters from a Store, applies combat actions and recomputes sheets
// through the bonus aggregator.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/udisondev/pathtracker/internal/ability"
	"github.com/udisondev/pathtracker/internal/bonus"
	"github.com/udisondev/pathtracker/internal/db"
	"github.com/udisondev/pathtracker/internal/dice"
	"github.com/udisondev/pathtracker/internal/model"
)

// ErrUnknownCheck is returned by Roll for an unsupported check name.
var ErrUnknownCheck = errors.New("unknown check")

// Service coordinates character state, persistence and the bonus engine.
//
// Thread-safe: mutations of one character are serialized; different
// characters proceed in parallel.
type Service struct {
	store  Store
	agg    *bonus.Aggregator
	roller *dice.Roller

	locks sync.Map // uuid.UUID → *sync.Mutex
}

// NewService creates a Service.
func NewService(store Store, agg *bonus.Aggregator, roller *dice.Roller) *Service {
	return &Service{store: store, agg: agg, roller: roller}
}

// CreateRequest describes a new character.
type CreateRequest struct {
	Name  string             `json:"name"`
	Class string             `json:"class"`
	Level int32              `json:"level"`
	MaxHP int32              `json:"max_hp"`
	Base  bonus.AttributeSet `json:"base"`
}

// Create creates and stores a character.
func (s *Service) Create(ctx context.Context, req CreateRequest) (model.Data, error) {
	c, err := model.NewCharacter(req.Name, req.Class, req.Level, req.MaxHP, req.Base)
	if err != nil {
		return model.Data{}, err
	}
	if err := s.store.Create(ctx, c); err != nil {
		return model.Data{}, fmt.Errorf("storing character: %w", err)
	}
	slog.Info("character created", "character", c.ID(), "name", c.Name())
	return c.Snapshot(), nil
}

// Get returns a character's data.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (model.Data, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return model.Data{}, err
	}
	return c.Snapshot(), nil
}

// List returns all characters.
func (s *Service) List(ctx context.Context) ([]db.CharacterSummary, error) {
	return s.store.List(ctx)
}

// Delete removes a character.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	unlock := s.lock(id)
	defer unlock()
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.locks.Delete(id)
	return nil
}

// Sheet computes the current sheet of a character.
func (s *Service) Sheet(ctx context.Context, id uuid.UUID) (model.Sheet, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return model.Sheet{}, err
	}
	return c.Sheet(s.agg), nil
}

// AddBuff adds or refreshes a buff and returns its id.
func (s *Service) AddBuff(ctx context.Context, id uuid.UUID, b model.Buff) (string, error) {
	var buffID string
	err := s.mutate(ctx, id, func(c *model.Character) error {
		var err error
		buffID, err = c.AddBuff(b)
		return err
	})
	return buffID, err
}

// RemoveBuff removes a buff.
func (s *Service) RemoveBuff(ctx context.Context, id uuid.UUID, buffID string) error {
	return s.mutate(ctx, id, func(c *model.Character) error {
		return c.RemoveBuff(buffID)
	})
}

// EndRound advances buff durations by rounds and returns expired buff names.
func (s *Service) EndRound(ctx context.Context, id uuid.UUID, rounds int32) ([]string, error) {
	if rounds <= 0 {
		rounds = 1
	}
	var expired []string
	err := s.mutate(ctx, id, func(c *model.Character) error {
		expired = c.TickRounds(rounds)
		return nil
	})
	if err == nil && len(expired) > 0 {
		slog.Debug("buffs expired", "character", id, "buffs", expired)
	}
	return expired, err
}

// AddGear adds an item and returns its id.
func (s *Service) AddGear(ctx context.Context, id uuid.UUID, g model.Gear) (string, error) {
	var gearID string
	err := s.mutate(ctx, id, func(c *model.Character) error {
		var err error
		gearID, err = c.AddGear(g)
		return err
	})
	return gearID, err
}

// Equip equips or unequips an item. Equipping takes over the item's slot.
func (s *Service) Equip(ctx context.Context, id uuid.UUID, gearID string, equipped bool) error {
	return s.mutate(ctx, id, func(c *model.Character) error {
		return c.SetEquipped(gearID, equipped)
	})
}

// AddAbility adds an ability and returns its id.
func (s *Service) AddAbility(ctx context.Context, id uuid.UUID, a ability.Ability) (string, error) {
	var abilityID string
	err := s.mutate(ctx, id, func(c *model.Character) error {
		var err error
		abilityID, err = c.AddAbility(a)
		return err
	})
	return abilityID, err
}

// ToggleAbility flips an ability and returns its new state.
func (s *Service) ToggleAbility(ctx context.Context, id uuid.UUID, abilityID string) (bool, error) {
	var active bool
	err := s.mutate(ctx, id, func(c *model.Character) error {
		var err error
		active, err = c.ToggleAbility(abilityID)
		return err
	})
	return active, err
}

// HPChange describes a hit point adjustment.
type HPChange struct {
	Damage int32 `json:"damage"`
	Heal   int32 `json:"heal"`
	Temp   int32 `json:"temp"`
}

// ApplyDamage applies temp HP, then damage, then healing, and returns the
// resulting HP block.
func (s *Service) ApplyDamage(ctx context.Context, id uuid.UUID, ch HPChange) (model.HPView, error) {
	var view model.HPView
	err := s.mutate(ctx, id, func(c *model.Character) error {
		c.SetTempHP(ch.Temp)
		c.Damage(ch.Damage)
		c.Heal(ch.Heal)
		view = c.Sheet(s.agg).HP
		return nil
	})
	return view, err
}

// Check names accepted by Roll.
const (
	CheckAttack       = "attack"
	CheckRangedAttack = "ranged_attack"
	CheckFortitude    = "fortitude"
	CheckReflex       = "reflex"
	CheckWill         = "will"
	CheckInitiative   = "initiative"
	CheckCMB          = "cmb"
)

// RollResult is a d20 check.
type RollResult struct {
	Check   string      `json:"check"`
	Bonus   int         `json:"bonus"`
	Natural int         `json:"natural"`
	Total   int         `json:"total"`
	Roll    dice.Result `json:"roll"`
}

// Roll rolls a d20 check for a character using its current sheet.
func (s *Service) Roll(ctx context.Context, id uuid.UUID, check string) (RollResult, error) {
	sheet, err := s.Sheet(ctx, id)
	if err != nil {
		return RollResult{}, err
	}
	b, err := CheckBonus(sheet, check)
	if err != nil {
		return RollResult{}, err
	}
	r := s.roller.D20(b)
	return RollResult{Check: check, Bonus: b, Natural: r.Natural(), Total: r.Total, Roll: r}, nil
}

// CheckBonus layers the modifier channels of a sheet over the derived
// ability-only values.
func CheckBonus(sheet model.Sheet, check string) (int, error) {
	final, d := sheet.Result.Final, sheet.Derived
	switch check {
	case CheckAttack:
		return d.BAB + bonus.AbilityModifier(final.Get(bonus.Strength)) + final.Get(bonus.Attack), nil
	case CheckRangedAttack:
		return d.BAB + bonus.AbilityModifier(final.Get(bonus.Dexterity)) + final.Get(bonus.RangedAttack), nil
	case CheckFortitude:
		return d.Fortitude + final.Get(bonus.Fortitude), nil
	case CheckReflex:
		return d.Reflex + final.Get(bonus.Reflex), nil
	case CheckWill:
		return d.Will + final.Get(bonus.Will), nil
	case CheckInitiative:
		return d.Initiative + final.Get(bonus.Initiative), nil
	case CheckCMB:
		return d.CMB + final.Get(bonus.CMB), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCheck, check)
	}
}

// RollExpr rolls a free-form dice expression.
func (s *Service) RollExpr(expr string) (dice.Result, error) {
	e, err := dice.Parse(expr)
	if err != nil {
		return dice.Result{}, err
	}
	return s.roller.Roll(e), nil
}

// mutate loads a character, applies fn and saves it, holding the
// character's lock throughout.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn func(*model.Character) error) error {
	unlock := s.lock(id)
	defer unlock()

	c, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		return err
	}
	if err := s.store.Save(ctx, c); err != nil {
		return fmt.Errorf("saving character %s: %w", id, err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*model.Character, error) {
	c, err := s.store.LoadByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading character %s: %w", id, err)
	}
	if c == nil {
		return nil, fmt.Errorf("character %s: %w", id, model.ErrNotFound)
	}
	return c, nil
}

func (s *Service) lock(id uuid.UUID) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
