// Package bonus resolves Pathfinder bonus stacking: it combines base ability
// scores with typed modifiers from buffs, gear and abilities into final
// attributes, a per-stat audit trail and derived combat values.
package bonus

import (
	"slices"
	"strings"
)

// contribution is one non-zero effect of a modifier on a single stat.
type contribution struct {
	name   string
	source string
	value  int
}

// resolution describes how one (stat, type) bucket was settled.
// Passed to the trace hook of Aggregator.
type resolution struct {
	stat      Stat
	typ       BonusType
	applied   []BonusRecord
	discarded int
}

// Aggregate combines base stats with active modifiers.
//
// Stacking rules, evaluated per stat and per bonus type independently:
//   - dodge: every contribution is applied and recorded
//   - any other type: only the highest value is applied, ties go to the
//     modifier that comes first in mods
//
// Zero effects are ignored. A modifier with an empty type counts as untyped.
// Inputs are never mutated; the result is freshly allocated.
func Aggregate(base AttributeSet, mods []Modifier) Result {
	return aggregate(base, mods, nil)
}

func aggregate(base AttributeSet, mods []Modifier, trace func(resolution)) Result {
	final := make(AttributeSet, len(base)+len(AbilityScores)+2)
	for _, s := range AbilityScores {
		final[s] = defaultAbilityScore
	}
	final[BAB] = 0
	final[AC] = 0
	for s, v := range base {
		final[s] = v
	}

	// stat -> type -> contributions in input order
	buckets := make(map[Stat]map[BonusType][]contribution)
	for _, m := range mods {
		typ := m.Type
		if typ == "" {
			typ = TypeUntyped
		}
		for stat, v := range m.Effects {
			if v == 0 {
				continue
			}
			byType, ok := buckets[stat]
			if !ok {
				byType = make(map[BonusType][]contribution)
				buckets[stat] = byType
			}
			byType[typ] = append(byType[typ], contribution{
				name:   m.Name,
				source: string(m.Source),
				value:  v,
			})
		}
	}

	details := make(map[Stat][]BonusRecord, len(buckets))
	for stat, byType := range buckets {
		total := 0
		var records []BonusRecord
		for _, typ := range orderedTypes(byType) {
			applied, discarded := resolve(typ, byType[typ])
			for _, r := range applied {
				total += r.Value
			}
			records = append(records, applied...)
			if trace != nil {
				trace(resolution{stat: stat, typ: typ, applied: applied, discarded: discarded})
			}
		}
		final[stat] += total
		if len(records) > 0 {
			details[stat] = records
		}
	}

	return Result{Final: final, Details: details}
}

// resolve settles a single bucket. Returns the applied records and how many
// contributions were dropped.
func resolve(typ BonusType, contribs []contribution) ([]BonusRecord, int) {
	if typ.Stacks() {
		out := make([]BonusRecord, 0, len(contribs))
		for _, c := range contribs {
			out = append(out, BonusRecord{Type: typ, Value: c.value, Name: c.name, Source: c.source})
		}
		return out, 0
	}

	best := contribs[0]
	for _, c := range contribs[1:] {
		if c.value > best.value {
			best = c
		}
	}
	if best.value == 0 {
		return nil, len(contribs)
	}
	return []BonusRecord{{Type: typ, Value: best.value, Name: best.name, Source: best.source}}, len(contribs) - 1
}

// orderedTypes returns bucket keys in reporting order: known types first in
// declaration order, then unknown tags alphabetically.
func orderedTypes(byType map[BonusType][]contribution) []BonusType {
	out := make([]BonusType, 0, len(byType))
	for t := range byType {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b BonusType) int {
		ia, aok := typeOrder[a]
		ib, bok := typeOrder[b]
		switch {
		case aok && bok:
			return ia - ib
		case aok:
			return -1
		case bok:
			return 1
		default:
			return strings.Compare(string(a), string(b))
		}
	})
	return out
}
