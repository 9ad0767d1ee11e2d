// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/vismem/internal/model"
)

const sparkChars = " .:-=+*#%@"

// SessionMetrics computes the recall rate and the false alarm rate of a session.
func SessionMetrics(s model.SessionAggregate) (recall, falseAlarm float64) {
	if s.Total > 0 {
		recall = float64(s.Score) / float64(s.Total)
	}
	if s.Distractors > 0 {
		falseAlarm = float64(s.FalseAlarms) / float64(s.Distractors)
	}
	return recall, falseAlarm
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

// Sparkline renders a single-line ASCII sparkline scaled to the values' range.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	return sparkline(values, minVal, maxVal)
}

// PercentSparkline renders values in [0, 1] on a fixed scale.
func PercentSparkline(values []float64) string {
	return sparkline(values, 0, 1)
}

func sparkline(values []float64, minVal, maxVal float64) string {
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

// Summary holds aggregate figures for a group of sessions.
type Summary struct {
	Modality       model.Modality
	Sessions       int
	AvgRecall      float64
	BestRecall     float64
	AvgFalseAlarms float64
	Perfect        int
}

// Summarize groups sessions by modality in Letters, Words, Images order.
func Summarize(sessions []model.SessionAggregate) []Summary {
	byModality := map[model.Modality]*Summary{}
	for _, s := range sessions {
		sum, ok := byModality[s.Modality]
		if !ok {
			sum = &Summary{Modality: s.Modality}
			byModality[s.Modality] = sum
		}
		recall, fa := SessionMetrics(s)
		sum.Sessions++
		sum.AvgRecall += recall
		sum.AvgFalseAlarms += fa
		sum.BestRecall = math.Max(sum.BestRecall, recall)
		if s.Total > 0 && s.Score == s.Total {
			sum.Perfect++
		}
	}
	out := make([]Summary, 0, len(byModality))
	for _, sum := range byModality {
		n := float64(sum.Sessions)
		sum.AvgRecall /= n
		sum.AvgFalseAlarms /= n
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Modality < out[j].Modality })
	return out
}

// RenderSummary prints a per-modality summary table for sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Summary"); err != nil {
		return err
	}
	headers := []string{"Modality", "Sessions", "Avg Recall", "Best Recall", "Avg False Alarms", "Perfect"}
	var rows [][]string
	for _, sum := range Summarize(sessions) {
		rows = append(rows, []string{
			sum.Modality.String(),
			fmt.Sprintf("%d", sum.Sessions),
			percent(sum.AvgRecall),
			percent(sum.BestRecall),
			percent(sum.AvgFalseAlarms),
			fmt.Sprintf("%d", sum.Perfect),
		})
	}
	return writeTable(w, headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true})
}

// RenderCurves prints recall and false alarm trends as sparklines.
func RenderCurves(w io.Writer, sessions []model.SessionAggregate, window int) error {
	if len(sessions) == 0 {
		return nil
	}
	recalls := make([]float64, len(sessions))
	fas := make([]float64, len(sessions))
	for i, s := range sessions {
		recalls[i], fas[i] = SessionMetrics(s)
	}
	recalls = MovingAverage(recalls, window)
	fas = MovingAverage(fas, window)

	if _, err := fmt.Fprintf(w, "Trend (moving average over %d)\n", max(window, 1)); err != nil {
		return err
	}
	lines := formatTable(nil, [][]string{
		{"Recall", "|" + PercentSparkline(recalls) + "|", percent(recalls[len(recalls)-1])},
		{"False alarms", "|" + PercentSparkline(fas) + "|", percent(fas[len(fas)-1])},
	}, map[int]bool{2: true})
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// StimulusRecall is the recall rate of a stimulus; 1 when it was never shown.
func StimulusRecall(agg model.StimulusAggregate) float64 {
	if agg.Shown == 0 {
		return 1.0
	}
	return float64(agg.Recalled) / float64(agg.Shown)
}

// RenderStimulusTable prints per-stimulus aggregates, hardest first.
func RenderStimulusTable(w io.Writer, aggs []model.StimulusAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No stimulus stats found.")
		return err
	}
	rows := HardestFirst(aggs)

	if _, err := fmt.Fprintln(w, "Per-Stimulus (Windowed)"); err != nil {
		return err
	}
	headers := []string{"Stimulus", "Recall", "Shown", "Recalled", "False Alarms"}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		tableRows = append(tableRows, []string{
			string(r.Stimulus),
			percent(StimulusRecall(r)),
			fmt.Sprintf("%d", r.Shown),
			fmt.Sprintf("%d", r.Recalled),
			fmt.Sprintf("%d", r.FalseAlarms),
		})
	}
	return writeTable(w, headers, tableRows, map[int]bool{1: true, 2: true, 3: true, 4: true})
}

// HardestFirst returns a copy of aggs ordered by sortByDifficulty.
func HardestFirst(aggs []model.StimulusAggregate) []model.StimulusAggregate {
	out := append([]model.StimulusAggregate(nil), aggs...)
	sortByDifficulty(out)
	return out
}

// sortByDifficulty orders by lowest recall, then most false alarms, then name.
func sortByDifficulty(rows []model.StimulusAggregate) {
	sort.Slice(rows, func(i, j int) bool {
		ri, rj := StimulusRecall(rows[i]), StimulusRecall(rows[j])
		if ri != rj {
			return ri < rj
		}
		if rows[i].FalseAlarms != rows[j].FalseAlarms {
			return rows[i].FalseAlarms > rows[j].FalseAlarms
		}
		return rows[i].Stimulus < rows[j].Stimulus
	})
}

func writeTable(w io.Writer, headers []string, rows [][]string, rightAlign map[int]bool) error {
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
