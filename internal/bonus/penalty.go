package bonus

import "slices"

// Penalty is the self-imposed cost of a combat option (the attack traded
// away by Power Attack, the AC lost to Rage). Penalties never compete with
// bonuses or with each other: all of them are added.
type Penalty struct {
	Name   string
	Stat   Stat
	Value  int
	Source SourceKind
}

// ApplyPenalties adds penalties on top of an aggregated result and records
// each one as an untyped entry after the stat's other records.
// Zero values are skipped. r must own its maps, which Aggregate guarantees.
func (r *Result) ApplyPenalties(ps []Penalty) {
	for _, p := range ps {
		if p.Value == 0 {
			continue
		}
		if r.Final == nil {
			r.Final = make(AttributeSet)
		}
		if r.Details == nil {
			r.Details = make(map[Stat][]BonusRecord)
		}
		if _, ok := r.Final[p.Stat]; !ok {
			r.Final[p.Stat] = DefaultValue(p.Stat)
		}
		r.Final[p.Stat] += p.Value
		r.Details[p.Stat] = append(slices.Clip(r.Details[p.Stat]), BonusRecord{
			Type:   TypeUntyped,
			Value:  p.Value,
			Name:   p.Name,
			Source: string(p.Source),
		})
	}
}
