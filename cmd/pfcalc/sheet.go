package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/pathtracker/internal/bonus"
	"github.com/udisondev/pathtracker/internal/model"
)

// statOrder is the print order of well-known stats. Anything else follows
// alphabetically.
var statOrder = []bonus.Stat{
	bonus.Strength, bonus.Dexterity, bonus.Constitution,
	bonus.Intelligence, bonus.Wisdom, bonus.Charisma,
	bonus.BAB, bonus.AC,
	bonus.Attack, bonus.Damage, bonus.RangedAttack, bonus.RangedDamage,
	bonus.Fortitude, bonus.Reflex, bonus.Will,
	bonus.Initiative, bonus.CMB, bonus.CMD,
}

// loadCharacter reads a character from YAML. A missing current_hp means
// full health.
func loadCharacter(path string) (*model.Character, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", path, err)
	}
	return parseCharacter(raw)
}

func parseCharacter(raw []byte) (*model.Character, error) {
	d := model.Data{CurrentHP: math.MinInt32}
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parsing sheet: %w", err)
	}
	if d.CurrentHP == math.MinInt32 {
		d.CurrentHP = d.MaxHP
	}
	for i := range d.Buffs {
		if d.Buffs[i].RemainingRounds == 0 {
			d.Buffs[i].RemainingRounds = model.PermanentDuration
		}
		if d.Buffs[i].Type == "" {
			d.Buffs[i].Type = bonus.TypeUntyped
		}
	}
	for i := range d.Gear {
		if d.Gear[i].Type == "" {
			d.Gear[i].Type = bonus.TypeUntyped
		}
	}

	c, err := model.Restore(d)
	if err != nil {
		return nil, fmt.Errorf("restoring sheet: %w", err)
	}
	// Restore does not validate modifiers.
	for _, m := range c.Modifiers() {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("%q: %w: %w", m.Name, model.ErrInvalidModifier, err)
		}
	}
	return c, nil
}

func orderedStats(set bonus.AttributeSet) []bonus.Stat {
	out := make([]bonus.Stat, 0, len(set))
	var rest []bonus.Stat
	for _, s := range statOrder {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	for s := range set {
		if !slices.Contains(statOrder, s) {
			rest = append(rest, s)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}

func renderText(w io.Writer, d model.Data, sheet model.Sheet) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "%s (%s %d)\n", d.Name, d.Class, d.Level)
	fmt.Fprintf(tw, "HP %d/%d", sheet.HP.Current, sheet.HP.Max)
	if sheet.HP.Temp > 0 {
		fmt.Fprintf(tw, " (+%d temp)", sheet.HP.Temp)
	}
	fmt.Fprintf(tw, " %s\n\n", sheet.HP.Status)

	fmt.Fprintln(tw, "STAT\tBASE\tFINAL\tBONUSES")
	for _, s := range orderedStats(sheet.Result.Final) {
		var parts []string
		for _, rec := range sheet.Result.Details[s] {
			parts = append(parts, fmt.Sprintf("%+d %s (%s)", rec.Value, rec.Type, rec.Name))
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", s, d.Base.Get(s), sheet.Result.Final[s], strings.Join(parts, ", "))
	}

	dv := sheet.Derived
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "DERIVED\tVALUE")
	for _, row := range []struct {
		name  string
		value int
	}{
		{"AC", dv.AC},
		{"Fortitude", dv.Fortitude},
		{"Reflex", dv.Reflex},
		{"Will", dv.Will},
		{"BAB", dv.BAB},
		{"CMB", dv.CMB},
		{"CMD", dv.CMD},
		{"Initiative", dv.Initiative},
	} {
		fmt.Fprintf(tw, "%s\t%+d\n", row.name, row.value)
	}

	return tw.Flush()
}

func renderJSON(w io.Writer, sheet model.Sheet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sheet)
}
