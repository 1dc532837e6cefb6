package stats

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/nback/internal/model"
)

type historyColumn struct {
	title string
	right bool
	cell  func(model.SessionAggregate) string
}

var historyColumns = []historyColumn{
	{title: "Ended", cell: func(s model.SessionAggregate) string { return s.EndedAt.Local().Format("2006-01-02 15:04") }},
	{title: "Mode", cell: func(s model.SessionAggregate) string { return s.Mode.String() }},
	{title: "N", right: true, cell: func(s model.SessionAggregate) string { return strconv.Itoa(s.NBack) }},
	{title: "Events", right: true, cell: func(s model.SessionAggregate) string { return strconv.Itoa(s.Events) }},
	{title: "Score", right: true, cell: func(s model.SessionAggregate) string { return strconv.Itoa(s.Score) }},
	{title: "Responses", right: true, cell: func(s model.SessionAggregate) string { return strconv.Itoa(s.Responses) }},
	{title: "Matches", right: true, cell: func(s model.SessionAggregate) string { return strconv.Itoa(s.Matches) }},
	{title: "Precision", right: true, cell: func(s model.SessionAggregate) string {
		precision, _ := SessionMetrics(s.Score, s.Responses, s.Matches)
		return fmt.Sprintf("%.1f%%", precision*100)
	}},
	{title: "Duration", right: true, cell: func(s model.SessionAggregate) string { return FormatDuration(s.DurationMs) }},
	{title: "Status", cell: func(s model.SessionAggregate) string { return SessionStatus(s) }},
}

// SessionStatus labels a session as done or stopped.
func SessionStatus(s model.SessionAggregate) string {
	if s.Completed {
		return "done"
	}
	return "stopped"
}

// FormatDuration renders milliseconds rounded to whole seconds, e.g. "1m5s".
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}

// historyLines lays out one row per session under the column titles.
func historyLines(sessions []model.SessionAggregate) []string {
	cells := make([][]string, 0, len(sessions)+1)
	header := make([]string, len(historyColumns))
	widths := make([]int, len(historyColumns))
	for i, col := range historyColumns {
		header[i] = col.title
		widths[i] = runewidth.StringWidth(col.title)
	}
	cells = append(cells, header)
	for _, s := range sessions {
		row := make([]string, len(historyColumns))
		for i, col := range historyColumns {
			row[i] = col.cell(s)
			widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
		}
		cells = append(cells, row)
	}

	lines := make([]string, 0, len(cells))
	for _, row := range cells {
		var b strings.Builder
		for i, cell := range row {
			if i > 0 {
				b.WriteByte(' ')
			}
			if historyColumns[i].right {
				b.WriteString(runewidth.FillLeft(cell, widths[i]))
			} else {
				b.WriteString(runewidth.FillRight(cell, widths[i]))
			}
		}
		lines = append(lines, b.String())
	}
	return lines
}

// RenderHistory prints one row per session, newest last.
func RenderHistory(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "History"); err != nil {
		return err
	}
	for _, line := range historyLines(sessions) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
