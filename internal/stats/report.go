// Package stats contains statistics calculations and reporting.
package stats

import (
	"context"
	"io"

	"github.com/verte-zerg/nback/internal/model"
	"github.com/verte-zerg/nback/internal/store"
)

// Report contains precomputed data for history rendering.
type Report struct {
	Sessions  []model.SessionAggregate
	HighScore int
	Window    int
}

// BuildReport loads and prepares data for history rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}
	highScore, err := st.HighScore(ctx)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Sessions:  sessions,
		HighScore: highScore,
		Window:    cfg.CurveWindow,
	}, nil
}

// Render prints summary, trend and history sized to width columns.
func (r Report) Render(w io.Writer, width int) error {
	if err := RenderSummary(w, r.Sessions, r.HighScore); err != nil {
		return err
	}
	if len(r.Sessions) == 0 {
		return nil
	}
	trendWidth := width - 2
	if trendWidth < 10 {
		trendWidth = 10
	}
	if err := RenderScoreTrend(w, r.Sessions, r.Window, trendWidth); err != nil {
		return err
	}
	return RenderHistory(w, r.Sessions)
}
