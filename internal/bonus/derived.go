package bonus

// DerivedStats is a read-only combat view computed from final attributes.
// Saves here are ability-only; callers add class base saves themselves.
type DerivedStats struct {
	AC         int `json:"ac"`
	Fortitude  int `json:"fortitude"`
	Reflex     int `json:"reflex"`
	Will       int `json:"will"`
	BAB        int `json:"bab"`
	CMB        int `json:"cmb"`
	CMD        int `json:"cmd"`
	Initiative int `json:"initiative"`
}

// AbilityModifier returns floor((score - 10) / 2).
func AbilityModifier(score int) int {
	d := score - 10
	if d < 0 {
		return (d - 1) / 2
	}
	return d / 2
}

// Derive projects final attributes into combat values.
// It reads resolved totals only and applies no stacking of its own.
func Derive(final AttributeSet) DerivedStats {
	str := AbilityModifier(final.Get(Strength))
	dex := AbilityModifier(final.Get(Dexterity))
	con := AbilityModifier(final.Get(Constitution))
	wis := AbilityModifier(final.Get(Wisdom))
	bab := final.Get(BAB)

	return DerivedStats{
		AC:         10 + dex + final.Get(AC),
		Fortitude:  con,
		Reflex:     dex,
		Will:       wis,
		BAB:        bab,
		CMB:        bab + str,
		CMD:        10 + bab + str + dex,
		Initiative: dex,
	}
}
