// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/nback/internal/model"
)

const sparkChars = " .:-=+*#%@"

// SessionMetrics computes precision (correct / responses) and hit rate
// (correct / matches present) for a session.
func SessionMetrics(score, responses, matches int) (precision, hitRate float64) {
	if responses > 0 {
		precision = float64(score) / float64(responses)
	}
	if matches > 0 {
		hitRate = float64(score) / float64(matches)
	}
	return precision, hitRate
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// Resample shrinks values to at most width points by averaging buckets.
func Resample(values []float64, width int) []float64 {
	if width <= 0 || len(values) <= width {
		return values
	}
	out := make([]float64, width)
	for i := 0; i < width; i++ {
		start := i * len(values) / width
		end := (i + 1) * len(values) / width
		var sum float64
		for _, v := range values[start:end] {
			sum += v
		}
		out[i] = sum / float64(end-start)
	}
	return out
}

// RenderSummary prints a summary block for sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate, highScore int) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	var totalScore int
	var totalPrecision, totalHit float64
	best := 0
	completed := 0
	for _, s := range sessions {
		precision, hit := SessionMetrics(s.Score, s.Responses, s.Matches)
		totalScore += s.Score
		totalPrecision += precision
		totalHit += hit
		if s.Score > best {
			best = s.Score
		}
		if s.Completed {
			completed++
		}
	}
	count := float64(len(sessions))
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d (%d completed)", len(sessions), completed),
		fmt.Sprintf("High score: %d", highScore),
		fmt.Sprintf("Best in range: %d", best),
		fmt.Sprintf("Avg score: %.2f", float64(totalScore)/count),
		fmt.Sprintf("Avg precision: %.2f%%", (totalPrecision/count)*100),
		fmt.Sprintf("Avg hit rate: %.2f%%", (totalHit/count)*100),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderScoreTrend prints a sparkline of scores smoothed over window.
func RenderScoreTrend(w io.Writer, sessions []model.SessionAggregate, window, width int) error {
	if len(sessions) == 0 {
		return nil
	}
	scores := make([]float64, len(sessions))
	for i, s := range sessions {
		scores[i] = float64(s.Score)
	}
	scores = Resample(MovingAverage(scores, window), width)
	if _, err := fmt.Fprintf(w, "Score trend (window %d)\n", window); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "[%s]\n\n", Sparkline(scores)); err != nil {
		return err
	}
	return nil
}
