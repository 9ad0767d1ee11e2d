package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/vismem/internal/model"
)

// HistoryTimeLayout is the display layout of history timestamps.
const HistoryTimeLayout = "02/01/06 15:04"

// NoProgressMessage is shown when the history log holds no entries.
const NoProgressMessage = "No progress available."

// HistoryFormats lists the output formats accepted by RenderHistory.
var HistoryFormats = []string{"table", "json", "yaml"}

type historyEntry struct {
	Timestamp string `json:"time-stamp" yaml:"time-stamp"`
	Score     string `json:"score" yaml:"score"`
}

// RenderHistory writes records in the given format. Records are written in
// the order given; callers pass them newest first.
func RenderHistory(w io.Writer, records []model.ProgressRecord, format string) error {
	entries := make([]historyEntry, len(records))
	for i, r := range records {
		entries[i] = historyEntry{Timestamp: r.Timestamp.Format(HistoryTimeLayout), Score: r.Score}
	}
	switch strings.ToLower(format) {
	case "", "table":
		return renderHistoryTable(w, entries)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown history format %q (expected one of %s)", format, strings.Join(HistoryFormats, ", "))
	}
}

func renderHistoryTable(w io.Writer, entries []historyEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, NoProgressMessage)
		return err
	}
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{e.Timestamp, e.Score}
	}
	for _, line := range formatTable([]string{"Date", "Score"}, rows, map[int]bool{1: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
