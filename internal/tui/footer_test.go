package tui

import (
	"strings"
	"testing"
	"time"
)

func TestRenderFooterFormats(t *testing.T) {
	deadline := time.Date(2024, 3, 9, 18, 45, 31, 0, time.Local)
	m := &Model{
		phase:     phaseReveal,
		deadline:  deadline,
		now:       func() time.Time { return deadline.Add(-1500 * time.Millisecond) },
		lastScore: "4/5",
	}
	out := m.renderFooter()
	if out == "" {
		t.Fatalf("expected footer output")
	}
	if !containsAll(out, []string{"Memorise 1.5s", "esc: cancel", "Last 4/5"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
}

func TestRenderFooterClampsElapsedDeadline(t *testing.T) {
	deadline := time.Date(2024, 3, 9, 18, 45, 31, 0, time.Local)
	m := &Model{
		phase:    phaseReveal,
		deadline: deadline,
		now:      func() time.Time { return deadline.Add(time.Second) },
	}
	if out := m.renderFooter(); !strings.Contains(out, "Memorise 0.0s") {
		t.Fatalf("expected clamped countdown, got %s", out)
	}
}

func TestRenderFooterHidesLastScoreOnResult(t *testing.T) {
	m := &Model{phase: phaseResult, lastScore: "2/3", now: time.Now}
	out := m.renderFooter()
	if strings.Contains(out, "Last") {
		t.Fatalf("result footer should not repeat the score: %s", out)
	}
	if !containsAll(out, []string{"enter: new quiz", "q: quit"}) {
		t.Fatalf("footer missing key hints: %s", out)
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
