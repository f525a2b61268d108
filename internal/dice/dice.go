// Package dice parses and rolls tabletop dice expressions such as "2d6+3".
package dice

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
)

const (
	maxCount = 100
	maxSides = 1000
)

var (
	// ErrEmptyExpr indicates an empty dice expression.
	ErrEmptyExpr = errors.New("dice expression is empty")

	// ErrInvalidExpr indicates a dice expression that could not be parsed.
	ErrInvalidExpr = errors.New("invalid dice expression")
)

// Expr is a parsed NdS+B expression.
type Expr struct {
	Count int `json:"count"`
	Sides int `json:"sides"`
	Bonus int `json:"bonus"`
}

// String formats e back into NdS+B form.
func (e Expr) String() string {
	switch {
	case e.Bonus > 0:
		return fmt.Sprintf("%dd%d+%d", e.Count, e.Sides, e.Bonus)
	case e.Bonus < 0:
		return fmt.Sprintf("%dd%d%d", e.Count, e.Sides, e.Bonus)
	default:
		return fmt.Sprintf("%dd%d", e.Count, e.Sides)
	}
}

// Parse parses "NdS", "dS", "NdS+B" or "NdS-B". Whitespace is ignored.
func Parse(s string) (Expr, error) {
	s = strings.ToLower(strings.ReplaceAll(s, " ", ""))
	if s == "" {
		return Expr{}, ErrEmptyExpr
	}

	countPart, rest, ok := strings.Cut(s, "d")
	if !ok {
		return Expr{}, fmt.Errorf("%w %q: missing 'd'", ErrInvalidExpr, s)
	}

	count := 1
	if countPart != "" {
		n, err := strconv.Atoi(countPart)
		if err != nil {
			return Expr{}, fmt.Errorf("%w %q: bad count: %w", ErrInvalidExpr, s, err)
		}
		count = n
	}

	sidesPart, bonus := rest, 0
	if i := strings.IndexAny(rest, "+-"); i >= 0 {
		sidesPart = rest[:i]
		b, err := strconv.Atoi(rest[i:])
		if err != nil {
			return Expr{}, fmt.Errorf("%w %q: bad bonus: %w", ErrInvalidExpr, s, err)
		}
		bonus = b
	}

	sides, err := strconv.Atoi(sidesPart)
	if err != nil {
		return Expr{}, fmt.Errorf("%w %q: bad sides: %w", ErrInvalidExpr, s, err)
	}

	if count <= 0 || count > maxCount || sides <= 0 || sides > maxSides {
		return Expr{}, fmt.Errorf("%w %q: out of range", ErrInvalidExpr, s)
	}
	return Expr{Count: count, Sides: sides, Bonus: bonus}, nil
}

// Result holds individual die results and the total including the bonus.
type Result struct {
	Expr  Expr  `json:"expr"`
	Rolls []int `json:"rolls"`
	Total int   `json:"total"`
}

// Natural reports the single die value of a one-die roll, or 0.
func (r Result) Natural() int {
	if len(r.Rolls) != 1 {
		return 0
	}
	return r.Rolls[0]
}

// Roller rolls dice from a seeded source. Thread-safe.
type Roller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRoller creates a Roller. The same seed always yields the same sequence.
func NewRoller(seed uint64) *Roller {
	return &Roller{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Roll rolls e.
func (r *Roller) Roll(e Expr) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	rolls := make([]int, e.Count)
	total := e.Bonus
	for i := range rolls {
		v := r.rng.IntN(e.Sides) + 1
		rolls[i] = v
		total += v
	}
	return Result{Expr: e, Rolls: rolls, Total: total}
}

// D20 rolls 1d20+bonus.
func (r *Roller) D20(bonus int) Result {
	return r.Roll(Expr{Count: 1, Sides: 20, Bonus: bonus})
}
