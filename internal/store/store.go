// Package store archives scored sessions in SQLite.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/verte-zerg/vismem/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// timeLayout is fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// goose keeps its configuration in package globals.
var gooseMu sync.Mutex

// Store wraps SQLite access for archived sessions.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{s.logger})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.Up(s.db, "migrations")
}

// gooseLogger routes migration output to slog.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrations")
}

// Fatalf logs at error level; goose must not exit the process.
func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrations")
}

// SaveResult stores a scored session and the outcome of every stimulus it involved.
func (s *Store) SaveResult(ctx context.Context, res model.SessionResult) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, modality, started_at, ended_at, duration_seconds, initial_count, final_count, score, false_alarms, unplaced)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID,
		res.Modality.String(),
		res.StartedAt.UTC().Format(timeLayout),
		res.EndedAt.UTC().Format(timeLayout),
		res.Config.DurationSeconds,
		res.Config.InitialCount,
		res.Config.FinalCount,
		res.Score,
		len(res.FalseAlarms),
		len(res.Unplaced),
	)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO session_stimuli (session_id, stimulus, shown, selected) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()

	shown := idSet(res.Initial)
	selected := idSet(res.Selected)
	seen := make(map[model.StimulusID]struct{}, len(res.Final))
	for _, group := range [][]model.StimulusID{res.Initial, res.Final} {
		for _, id := range group {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			_, isShown := shown[id]
			_, isSelected := selected[id]
			if _, err = stmt.ExecContext(ctx, res.ID, string(id), boolInt(isShown), boolInt(isSelected)); err != nil {
				return err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	s.logger.Debug("archived session", "session", res.ID, "stimuli", len(seen))
	return nil
}

// ListSessions returns session aggregates filtered by cfg in ascending end order.
// With cfg.Last > 0 only the most recent sessions are returned.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Modality != 0 {
		clauses = append(clauses, "modality = ?")
		args = append(args, cfg.Modality.String())
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.UTC().Format(timeLayout))
	}
	limit := -1
	if cfg.Last > 0 {
		limit = cfg.Last
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT id, modality, ended_at, score, initial_count, final_count, false_alarms
		FROM (
			SELECT * FROM sessions
			WHERE %s
			ORDER BY ended_at DESC
			LIMIT ?
		)
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionAggregate
	for rows.Next() {
		var agg model.SessionAggregate
		var modality, endedAt string
		var finalCount int
		if err := rows.Scan(&agg.SessionID, &modality, &endedAt, &agg.Score, &agg.Total, &finalCount, &agg.FalseAlarms); err != nil {
			return nil, err
		}
		if agg.Modality, err = model.ParseModality(modality); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(timeLayout, endedAt)
		if err != nil {
			return nil, err
		}
		agg.EndedAt = parsed.Local()
		agg.Distractors = finalCount - agg.Total
		sessions = append(sessions, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListStimulusAggregates aggregates per-stimulus outcomes across sessions.
func (s *Store) ListStimulusAggregates(ctx context.Context, sessionIDs []string) ([]model.StimulusAggregate, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(sessionIDs))
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT stimulus,
		SUM(shown) AS shown,
		SUM(CASE WHEN shown = 1 AND selected = 1 THEN 1 ELSE 0 END) AS recalled,
		SUM(CASE WHEN shown = 0 AND selected = 1 THEN 1 ELSE 0 END) AS false_alarms
		FROM session_stimuli
		WHERE session_id IN (%s)
		GROUP BY stimulus
		ORDER BY stimulus`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.StimulusAggregate
	for rows.Next() {
		var agg model.StimulusAggregate
		var stimulus string
		if err := rows.Scan(&stimulus, &agg.Shown, &agg.Recalled, &agg.FalseAlarms); err != nil {
			return nil, err
		}
		agg.Stimulus = model.StimulusID(stimulus)
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func idSet(ids []model.StimulusID) map[model.StimulusID]struct{} {
	set := make(map[model.StimulusID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
