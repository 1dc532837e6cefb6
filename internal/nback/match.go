package nback

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is matched by every ConfigError.
var ErrInvalidConfig = errors.New("invalid generation config")

// ConfigError describes generation parameters that cannot be satisfied.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidConfig) succeed.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// IsMatch reports whether seq[index] equals the symbol nBack steps earlier.
// Indices without a predecessor, or outside seq, never match.
func IsMatch(seq Sequence, index, nBack int) bool {
	if nBack < 1 || index < nBack || index >= len(seq) {
		return false
	}
	return seq[index] == seq[index-nBack]
}

// CountMatches counts the matching positions of seq.
func CountMatches(seq Sequence, nBack int) int {
	count := 0
	for i := range seq {
		if IsMatch(seq, i, nBack) {
			count++
		}
	}
	return count
}

// GridCells returns the symbol space of a square grid.
func GridCells(gridSize int) int {
	return gridSize * gridSize
}

// Letter maps symbol k to the k-th uppercase letter. Symbols outside
// [1, 26] map to the empty string.
func Letter(symbol int) string {
	if symbol < 1 || symbol > 26 {
		return ""
	}
	return string(rune('A' + symbol - 1))
}

// Letters maps a whole sequence through Letter.
func Letters(seq Sequence) []string {
	out := make([]string, len(seq))
	for i, s := range seq {
		out[i] = Letter(s)
	}
	return out
}
