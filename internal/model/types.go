// Package model defines shared data structures.
package model

import (
	"encoding"
	"fmt"
	"time"
)

// StimulusID identifies one recallable item: a letter, an image filename or a word.
type StimulusID string

// Modality is the kind of stimulus being tested.
type Modality int

const (
	Letters Modality = iota + 1
	Words
	Images
)

var (
	modalityNames  = [...]string{Letters: "letters", Words: "words", Images: "images"}
	modalityByName = map[string]Modality{
		"letters": Letters,
		"words":   Words,
		"images":  Images,
	}
)

var (
	_ fmt.Stringer             = Modality(0)
	_ encoding.TextMarshaler   = Modality(0)
	_ encoding.TextUnmarshaler = (*Modality)(nil)
)

func (m Modality) isValid() bool {
	return m >= Letters && m <= Images
}

// String returns the lowercase modality name, or "Modality(n)" for invalid values.
func (m Modality) String() string {
	if m.isValid() {
		return modalityNames[m]
	}
	return fmt.Sprintf("Modality(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m Modality) MarshalText() ([]byte, error) {
	if !m.isValid() {
		return nil, fmt.Errorf("invalid modality: %d", int(m))
	}
	return []byte(modalityNames[m]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Modality) UnmarshalText(text []byte) error {
	v, ok := modalityByName[string(text)]
	if !ok {
		return fmt.Errorf("invalid modality: %q", text)
	}
	*m = v
	return nil
}

// ParseModality parses a modality name.
func ParseModality(s string) (Modality, error) {
	var m Modality
	if err := m.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return m, nil
}

// Position is a point in a placement region.
type Position struct {
	X int
	Y int
}

// Region is the area stimuli are placed in.
type Region struct {
	Width  int
	Height int
}

// PlacementResult holds accepted positions and the ids that could not be placed.
type PlacementResult struct {
	Placed map[StimulusID]Position
	// Order lists accepted ids in placement order.
	Order  []StimulusID
	Failed []StimulusID
}

// SessionConfig defines one quiz run.
type SessionConfig struct {
	DurationSeconds float64
	InitialCount    int
	FinalCount      int
}

// Duration returns the reveal duration.
func (c SessionConfig) Duration() time.Duration {
	return time.Duration(c.DurationSeconds * float64(time.Second))
}

// ProgressRecord is one entry of the history log.
type ProgressRecord struct {
	Timestamp time.Time
	Score     string
}

// SessionResult captures a scored session.
type SessionResult struct {
	ID          string
	Modality    Modality
	Config      SessionConfig
	StartedAt   time.Time
	EndedAt     time.Time
	Initial     []StimulusID
	Final       []StimulusID
	Selected    []StimulusID
	Correct     []StimulusID
	Missed      []StimulusID
	FalseAlarms []StimulusID
	Unplaced    []StimulusID
	Score       int
}

// ScoreLabel formats the score as "correct/total".
func (r SessionResult) ScoreLabel() string {
	return fmt.Sprintf("%d/%d", r.Score, r.Config.InitialCount)
}

// StatsConfig defines filters for history reporting.
type StatsConfig struct {
	Modality    Modality
	Since       *time.Time
	Last        int
	CurveWindow int
}

// SessionAggregate summarizes an archived session for reporting.
type SessionAggregate struct {
	SessionID   string
	Modality    Modality
	EndedAt     time.Time
	Score       int
	Total       int
	Distractors int
	FalseAlarms int
}

// StimulusAggregate aggregates per-stimulus outcomes across sessions.
type StimulusAggregate struct {
	Stimulus    StimulusID
	Shown       int
	Recalled    int
	FalseAlarms int
}

// NewProgressRecord builds a history entry at minute precision.
func NewProgressRecord(at time.Time, score, total int) ProgressRecord {
	return ProgressRecord{
		Timestamp: time.Date(at.Year(), at.Month(), at.Day(), at.Hour(), at.Minute(), 0, 0, at.Location()),
		Score:     fmt.Sprintf("%d/%d", score, total),
	}
}
