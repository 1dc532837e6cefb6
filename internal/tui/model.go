// Package tui provides the Bubble Tea N-back interface.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/nback/internal/model"
	"github.com/verte-zerg/nback/internal/session"
)

// Model implements the Bubble Tea game UI on top of a session.
type Model struct {
	ctx      context.Context
	session  *session.Session
	settings model.GameSettings
	updates  <-chan session.State
	state    session.State

	keys     keyMap
	help     help.Model
	progress progress.Model
	errMsg   string
	home     bool

	width  int
	height int
}

type stateMsg session.State

type closedMsg struct{}

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	correctStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	wrongStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	letterStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true).Padding(0, 2)
	cellStyle     = lipgloss.NewStyle().Width(5).Height(2).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#4A4A4A"))
	activeCellBg  = lipgloss.Color("#C89A3A")
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
)

// NewModel constructs the game UI. The session must outlive the program.
func NewModel(ctx context.Context, sess *session.Session, settings model.GameSettings) *Model {
	m := &Model{
		ctx:      ctx,
		session:  sess,
		settings: settings,
		updates:  sess.Subscribe(),
		state:    sess.Snapshot(),
		keys:     newKeyMap(),
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
	m.syncKeys()
	return m
}

func waitForState(ch <-chan session.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return stateMsg(st)
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return waitForState(m.updates)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.state = session.State(msg)
		if m.state.Running() {
			m.home = false
		}
		m.syncKeys()
		return m, waitForState(m.updates)
	case closedMsg:
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(40, max(10, msg.Width-10))
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.session.Stop()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Match):
		m.session.Respond()
	case key.Matches(msg, m.keys.Stop):
		m.session.Stop()
	case key.Matches(msg, m.keys.Back):
		m.home = true
	case key.Matches(msg, m.keys.Visual):
		m.session.SetGameMode(model.ModeVisual)
	case key.Matches(msg, m.keys.Audio):
		m.session.SetGameMode(model.ModeAudio)
	case key.Matches(msg, m.keys.Dual):
		m.session.SetGameMode(model.ModeDual)
	case key.Matches(msg, m.keys.Start):
		m.startSession()
	}
	m.state = m.session.Snapshot()
	m.syncKeys()
	return m, nil
}

// finishedScreen reports whether the results screen is showing.
func (m *Model) finishedScreen() bool {
	return m.state.Status == session.StatusFinished && !m.home
}

func (m *Model) syncKeys() {
	m.keys.setPhase(m.state.Running(), m.finishedScreen())
}

func (m *Model) startSession() {
	cfg := model.SessionConfig{Settings: m.settings, Mode: m.session.Mode()}
	if err := m.session.Start(m.ctx, cfg); err != nil {
		m.errMsg = fmt.Sprintf("cannot start: %v", err)
		return
	}
	m.errMsg = ""
	m.home = false
}

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	switch m.state.Status {
	case session.StatusRunning:
		body = m.renderGame()
	case session.StatusFinished:
		body = m.renderFinished()
		if m.home {
			body = m.renderHome()
		}
	default:
		body = m.renderHome()
	}
	if m.errMsg != "" {
		body = lipgloss.JoinVertical(lipgloss.Center, body, "", errorStyle.Render(m.errMsg))
	}
	footer := footerStyle.Render(m.help.View(m.keys))
	if m.width == 0 || m.height < 3 {
		return body + "\n\n" + footer
	}
	content := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, body)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return content + "\n" + footerLine
}

func (m *Model) renderHome() string {
	lines := []string{
		titleStyle.Render(fmt.Sprintf("%d-back", m.settings.NBack)),
		"",
		m.renderModes(),
		"",
		mutedStyle.Render(m.renderSettings()),
		mutedStyle.Render(fmt.Sprintf("High score %d", m.state.HighScore)),
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) renderModes() string {
	modes := []model.GameMode{model.ModeVisual, model.ModeAudio, model.ModeDual}
	parts := make([]string, 0, len(modes))
	for i, mode := range modes {
		label := fmt.Sprintf("%d %s", i+1, mode)
		if mode == m.state.Mode {
			parts = append(parts, selectedStyle.Render("["+label+"]"))
		} else {
			parts = append(parts, mutedStyle.Render(" "+label+" "))
		}
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderSettings() string {
	return fmt.Sprintf("%d events · %.1fs · grid %s · %d letters · %d%% matches",
		m.settings.Events, m.settings.IntervalSeconds(), m.settings.GridDimensions(), m.settings.Letters, m.settings.MatchPercent)
}

func (m *Model) renderGame() string {
	st := m.state
	var stimulus []string
	if st.Mode.HasVisual() {
		stimulus = append(stimulus, renderGrid(st.Settings.GridSize, st.Stimulus.Position))
	}
	if st.Mode.HasAudio() {
		letter := st.Stimulus.Letter
		if letter == "" {
			letter = " "
		}
		stimulus = append(stimulus, letterStyle.Render(letter))
	}
	return lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render(fmt.Sprintf("%d-back · %s", st.Settings.NBack, st.Mode)),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center, stimulus...),
		"",
		renderFeedback(st),
		m.progress.ViewAs(progressPercent(st)),
		m.renderStatusLine(),
	)
}

func (m *Model) renderFinished() string {
	st := m.state
	lines := []string{
		titleStyle.Render("Session over"),
		"",
		fmt.Sprintf("Score %d · %d responses", st.Score, st.Responses),
	}
	if st.NewHighScore {
		lines = append(lines, correctStyle.Render("New high score!"))
	} else {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("High score %d", st.HighScore)))
	}
	lines = append(lines, "", m.renderModes())
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

// renderStatusLine formats progress and score.
func (m *Model) renderStatusLine() string {
	st := m.state
	segments := []string{
		fmt.Sprintf("Event %d/%d", st.CurrentIndex+1, st.TotalEvents),
		fmt.Sprintf("Score %d", st.Score),
		fmt.Sprintf("Best %d", st.HighScore),
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func renderFeedback(st session.State) string {
	switch {
	case st.LastResponseCorrect != nil && *st.LastResponseCorrect:
		return correctStyle.Render("match ✓")
	case st.LastResponseCorrect != nil:
		return wrongStyle.Render("no match ✗")
	case st.CanRespond:
		return mutedStyle.Render("press space on a match")
	default:
		return mutedStyle.Render(fmt.Sprintf("memorize the first %d", st.Settings.NBack))
	}
}

// renderGrid draws a size×size grid with the 1-based active cell filled.
func renderGrid(size, active int) string {
	if size <= 0 {
		return ""
	}
	rows := make([]string, 0, size)
	for r := 0; r < size; r++ {
		cells := make([]string, 0, size)
		for c := 0; c < size; c++ {
			style := cellStyle
			if r*size+c+1 == active {
				style = style.Background(activeCellBg)
			}
			cells = append(cells, style.Render(""))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func progressPercent(st session.State) float64 {
	if st.TotalEvents <= 0 {
		return 0
	}
	return float64(st.CurrentIndex+1) / float64(st.TotalEvents)
}
