package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/nback/internal/model"
	"github.com/verte-zerg/nback/internal/nback"
	"github.com/verte-zerg/nback/internal/session"
)

func newTestModel(t *testing.T, settings model.GameSettings) (*Model, *session.Session) {
	t.Helper()
	sess := session.New(context.Background(), nback.NewWithSeed(7), session.Options{})
	t.Cleanup(sess.Close)
	return NewModel(context.Background(), sess, settings), sess
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModeKeysSelectMode(t *testing.T) {
	m, sess := newTestModel(t, model.DefaultSettings())
	cases := []struct {
		key  string
		want model.GameMode
	}{
		{"2", model.ModeAudio},
		{"3", model.ModeDual},
		{"1", model.ModeVisual},
	}
	for _, tc := range cases {
		m.Update(runeKey(tc.key))
		if got := sess.Mode(); got != tc.want {
			t.Fatalf("key %s: expected mode %s, got %s", tc.key, tc.want, got)
		}
	}
	if !strings.Contains(m.View(), "[1 visual]") {
		t.Fatalf("expected selected mode in home view:\n%s", m.View())
	}
}

func TestStartKeyRunsSession(t *testing.T) {
	settings := model.DefaultSettings()
	settings.IntervalMs = 5000
	m, sess := newTestModel(t, settings)
	m.Update(runeKey("3"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	st := sess.Snapshot()
	if st.Status != session.StatusRunning {
		t.Fatalf("expected running session, got %s", st.Status)
	}
	if st.Mode != model.ModeDual {
		t.Fatalf("expected dual mode, got %s", st.Mode)
	}
	if m.keys.Start.Enabled() || !m.keys.Match.Enabled() {
		t.Fatalf("expected game bindings enabled while running")
	}
	m.Update(runeKey("1"))
	if sess.Mode() != model.ModeDual {
		t.Fatalf("mode changed while running")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if got := sess.Snapshot().Status; got != session.StatusFinished {
		t.Fatalf("expected finished after esc, got %s", got)
	}
	if !strings.Contains(m.View(), "Session over") {
		t.Fatalf("expected finished view:\n%s", m.View())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if !strings.Contains(m.View(), "[3 dual]") {
		t.Fatalf("expected home view after esc:\n%s", m.View())
	}
	if m.keys.Back.Enabled() || !m.keys.Start.Enabled() {
		t.Fatalf("expected home bindings after esc")
	}
}

func TestStartErrorIsShown(t *testing.T) {
	settings := model.DefaultSettings()
	settings.IntervalMs = 0
	m, sess := newTestModel(t, settings)
	m.Update(runeKey("s"))
	if sess.Snapshot().Status != session.StatusIdle {
		t.Fatalf("expected idle session after failed start")
	}
	if !strings.Contains(m.View(), "cannot start") {
		t.Fatalf("expected start error in view:\n%s", m.View())
	}
}

func TestStateMsgUpdatesModel(t *testing.T) {
	m, _ := newTestModel(t, model.DefaultSettings())
	st := session.State{Status: session.StatusRunning, Mode: model.ModeAudio, TotalEvents: 20, Stimulus: session.Stimulus{Letter: "C"}}
	_, cmd := m.Update(stateMsg(st))
	if cmd == nil {
		t.Fatalf("expected follow-up wait command")
	}
	if m.state.Stimulus.Letter != "C" {
		t.Fatalf("expected stimulus letter to be stored")
	}
	if !strings.Contains(m.View(), "C") {
		t.Fatalf("expected letter in game view")
	}
}

func TestRenderGridSize(t *testing.T) {
	grid := renderGrid(3, 5)
	if got := lipgloss.Width(grid); got != 3*lipgloss.Width(cellStyle.Render("")) {
		t.Fatalf("unexpected grid width %d", got)
	}
	if got := lipgloss.Height(grid); got != 3*lipgloss.Height(cellStyle.Render("")) {
		t.Fatalf("unexpected grid height %d", got)
	}
	if renderGrid(0, 1) != "" {
		t.Fatalf("expected empty grid for size 0")
	}
}

func TestProgressPercent(t *testing.T) {
	if got := progressPercent(session.State{CurrentIndex: 4, TotalEvents: 10}); got != 0.5 {
		t.Fatalf("expected 0.5, got %f", got)
	}
	if got := progressPercent(session.State{}); got != 0 {
		t.Fatalf("expected 0 without events, got %f", got)
	}
}
