// Package nback builds N-back stimulus sequences and evaluates matches.
package nback

import (
	"math/rand"
	"time"
)

// Sequence is an ordered list of symbols in [1, symbolSpace].
type Sequence []int

// Generator produces randomized N-back sequences with an exact match count.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a Generator with reproducible output.
func NewWithSeed(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// TargetMatches returns how many matchable positions must be matches,
// rounding half up.
func TargetMatches(length, matchPercent, nBack int) int {
	matchable := length - nBack
	if matchable <= 0 {
		return 0
	}
	return (matchable*matchPercent + 50) / 100
}

// Generate builds a sequence of length symbols in which exactly
// TargetMatches(length, matchPercent, nBack) positions equal the symbol
// nBack steps earlier. It is not safe for concurrent use.
func (g *Generator) Generate(length, symbolSpace, matchPercent, nBack int) (Sequence, error) {
	if err := validate(length, symbolSpace, matchPercent, nBack); err != nil {
		return nil, err
	}

	matchable := length - nBack
	if matchable < 0 {
		matchable = 0
	}
	forced := make([]bool, length)
	target := TargetMatches(length, matchPercent, nBack)
	for _, offset := range g.rnd.Perm(matchable)[:target] {
		forced[nBack+offset] = true
	}

	seq := make(Sequence, length)
	for i := 0; i < length; i++ {
		switch {
		case i < nBack:
			seq[i] = g.symbol(symbolSpace)
		case forced[i]:
			seq[i] = seq[i-nBack]
		default:
			seq[i] = g.symbolExcept(symbolSpace, seq[i-nBack])
		}
	}
	return seq, nil
}

func (g *Generator) symbol(symbolSpace int) int {
	return g.rnd.Intn(symbolSpace) + 1
}

// symbolExcept draws uniformly from [1, symbolSpace] without excluded.
func (g *Generator) symbolExcept(symbolSpace, excluded int) int {
	v := g.rnd.Intn(symbolSpace-1) + 1
	if v >= excluded {
		v++
	}
	return v
}

func validate(length, symbolSpace, matchPercent, nBack int) error {
	if length < 1 {
		return &ConfigError{Field: "length", Reason: "must be at least 1"}
	}
	if nBack < 1 {
		return &ConfigError{Field: "nBack", Reason: "must be at least 1"}
	}
	if matchPercent < 0 || matchPercent > 100 {
		return &ConfigError{Field: "matchPercent", Reason: "must be between 0 and 100"}
	}
	if symbolSpace < 1 {
		return &ConfigError{Field: "symbolSpace", Reason: "must be at least 1"}
	}
	if nBack >= length && matchPercent > 0 {
		return &ConfigError{Field: "nBack", Reason: "no position can match when nBack >= length"}
	}
	nonMatches := length - nBack - TargetMatches(length, matchPercent, nBack)
	if symbolSpace < 2 && nonMatches > 0 {
		return &ConfigError{Field: "symbolSpace", Reason: "at least 2 symbols are needed for non-matching positions"}
	}
	return nil
}
