// Package session runs a timed N-back game and scores responses.
package session

import (
	"context"
	"time"

	"github.com/verte-zerg/nback/internal/model"
	"github.com/verte-zerg/nback/internal/nback"
)

// Status is the lifecycle phase of a session.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Stimulus is what the presentation layer shows for one event.
// Position is a 1-based grid cell and 0 when the mode has no grid;
// Letter is empty when the mode has no audio.
type Stimulus struct {
	Position int
	Letter   string
}

// State is a snapshot of the session for presentation.
type State struct {
	ID                  string
	Mode                model.GameMode
	Status              Status
	Settings            model.GameSettings
	CurrentIndex        int
	TotalEvents         int
	Stimulus            Stimulus
	CanRespond          bool
	LastResponseCorrect *bool
	Score               int
	Responses           int
	HighScore           int
	NewHighScore        bool
}

// Running reports whether the advancement loop is active.
func (s State) Running() bool {
	return s.Status == StatusRunning
}

// Generator builds stimulus sequences.
type Generator interface {
	Generate(length, symbolSpace, matchPercent, nBack int) (nback.Sequence, error)
}

// HighScoreStore reads and persists the best score.
type HighScoreStore interface {
	HighScore(ctx context.Context) (int, error)
	SaveHighScore(ctx context.Context, score int) error
}

// ResultRecorder receives every finished session.
type ResultRecorder interface {
	RecordSession(ctx context.Context, res model.SessionResult) error
}

// Clock abstracts time for the advancement loop.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
