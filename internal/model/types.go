// Package model defines shared data structures.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidSettings reports settings outside the supported ranges.
var ErrInvalidSettings = errors.New("invalid settings")

// GameMode selects which stimuli a session presents.
type GameMode int

const (
	ModeVisual GameMode = iota
	ModeAudio
	ModeDual
)

// String returns the lowercase mode name used in config and storage.
func (m GameMode) String() string {
	switch m {
	case ModeVisual:
		return "visual"
	case ModeAudio:
		return "audio"
	case ModeDual:
		return "dual"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// HasVisual reports whether the mode presents grid positions.
func (m GameMode) HasVisual() bool {
	return m == ModeVisual || m == ModeDual
}

// HasAudio reports whether the mode presents letters.
func (m GameMode) HasAudio() bool {
	return m == ModeAudio || m == ModeDual
}

// ParseGameMode parses a mode name. Empty input is rejected.
func ParseGameMode(s string) (GameMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "visual", "v":
		return ModeVisual, nil
	case "audio", "a":
		return ModeAudio, nil
	case "dual", "audiovisual", "d":
		return ModeDual, nil
	default:
		return ModeVisual, fmt.Errorf("unknown mode %q (want visual, audio or dual)", s)
	}
}

// Setting defaults and bounds.
const (
	DefaultNBack        = 2
	DefaultEvents       = 20
	DefaultIntervalMs   = 2000
	DefaultGridSize     = 3
	DefaultLetters      = 8
	DefaultMatchPercent = 30

	MinNBack      = 1
	MaxNBack      = 4
	MinEvents     = 10
	MaxEvents     = 50
	MinIntervalMs = 1000
	MaxIntervalMs = 5000
	MinGridSize   = 3
	MaxGridSize   = 5
	MinLetters    = 6
	MaxLetters    = 10
)

// GameSettings holds the user-editable game parameters.
type GameSettings struct {
	NBack        int
	Events       int
	IntervalMs   int
	GridSize     int
	Letters      int
	MatchPercent int
}

// DefaultSettings returns the stock settings.
func DefaultSettings() GameSettings {
	return GameSettings{
		NBack:        DefaultNBack,
		Events:       DefaultEvents,
		IntervalMs:   DefaultIntervalMs,
		GridSize:     DefaultGridSize,
		Letters:      DefaultLetters,
		MatchPercent: DefaultMatchPercent,
	}
}

// Validate checks every field against its supported range.
func (s GameSettings) Validate() error {
	checks := []struct {
		name     string
		value    int
		min, max int
	}{
		{"n", s.NBack, MinNBack, MaxNBack},
		{"events", s.Events, MinEvents, MaxEvents},
		{"interval-ms", s.IntervalMs, MinIntervalMs, MaxIntervalMs},
		{"grid-size", s.GridSize, MinGridSize, MaxGridSize},
		{"letters", s.Letters, MinLetters, MaxLetters},
		{"match-percent", s.MatchPercent, 0, 100},
	}
	for _, c := range checks {
		if c.value < c.min || c.value > c.max {
			return fmt.Errorf("%w: --%s must be between %d and %d, got %d", ErrInvalidSettings, c.name, c.min, c.max, c.value)
		}
	}
	return nil
}

// Interval returns the event interval as a duration.
func (s GameSettings) Interval() time.Duration {
	return time.Duration(s.IntervalMs) * time.Millisecond
}

// IntervalSeconds returns the event interval in seconds.
func (s GameSettings) IntervalSeconds() float64 {
	return float64(s.IntervalMs) / 1000
}

// GridDimensions formats the grid size, e.g. "3×3".
func (s GameSettings) GridDimensions() string {
	return fmt.Sprintf("%d×%d", s.GridSize, s.GridSize)
}

// SessionConfig is the immutable input of one game session.
type SessionConfig struct {
	Settings GameSettings
	Mode     GameMode
}

// SessionResult captures a finished game session.
type SessionResult struct {
	ID           string
	StartedAt    time.Time
	EndedAt      time.Time
	Mode         GameMode
	Settings     GameSettings
	Score        int
	Responses    int
	Matches      int
	Completed    bool
	NewHighScore bool
}

// StatsConfig defines filters and options for history output.
type StatsConfig struct {
	Mode        string
	Since       *time.Time
	Last        int
	CurveWindow int
}

// SessionAggregate summarizes a stored session for reporting.
type SessionAggregate struct {
	ID         string
	EndedAt    time.Time
	Mode       GameMode
	NBack      int
	Events     int
	Score      int
	Responses  int
	Matches    int
	Completed  bool
	DurationMs int64
}
