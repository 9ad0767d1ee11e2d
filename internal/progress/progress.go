// Package progress persists the quiz history log.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"

	"github.com/verte-zerg/vismem/internal/model"
)

// TimestampLayout is the on-disk timestamp format (DD/MM/YY HH:MM).
const TimestampLayout = "02/01/06 15:04"

const lockRetry = 25 * time.Millisecond

type document struct {
	Progressi []entry `json:"progressi"`
}

type entry struct {
	TimeStamp string `json:"time-stamp"`
	Score     string `json:"score"`
}

// Store is the append-only history log. Every call reads the file afresh;
// nothing is cached between calls.
type Store struct {
	path   string
	logger *slog.Logger
}

// New returns a Store backed by the JSON document at path.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{path: path, logger: logger}
}

// Path returns the history file path.
func (s *Store) Path() string {
	return s.path
}

// Append adds record to the log under an exclusive file lock. A missing log is
// created. A log that cannot be parsed is left untouched and reported.
func (s *Store) Append(ctx context.Context, record model.ProgressRecord) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return s.fail("create directory for", err)
	}
	lock := flock.New(s.path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return s.fail("lock", err)
	}
	if !locked {
		return s.fail("lock", fmt.Errorf("lock not acquired"))
	}
	defer func() {
		if uerr := lock.Unlock(); uerr != nil {
			s.logger.Warn("failed to release history lock", "path", s.path, "err", uerr)
		}
	}()

	doc, err := s.read()
	if err != nil {
		return err
	}
	doc.Progressi = append(doc.Progressi, entry{
		TimeStamp: record.Timestamp.Format(TimestampLayout),
		Score:     record.Score,
	})
	if err := s.write(doc); err != nil {
		return err
	}
	s.logger.Debug("appended progress record", "path", s.path, "score", record.Score, "records", len(doc.Progressi))
	return nil
}

// Load returns every record, newest first. Records with equal timestamps keep
// their insertion order. A missing log yields an empty slice.
func (s *Store) Load(ctx context.Context) ([]model.ProgressRecord, error) {
	if _, err := os.Stat(filepath.Dir(s.path)); errors.Is(err, os.ErrNotExist) {
		return []model.ProgressRecord{}, nil
	}
	lock := flock.New(s.path + ".lock")
	locked, err := lock.TryRLockContext(ctx, lockRetry)
	if err != nil {
		return nil, s.fail("lock", err)
	}
	if !locked {
		return nil, s.fail("lock", fmt.Errorf("lock not acquired"))
	}
	defer func() {
		if uerr := lock.Unlock(); uerr != nil {
			s.logger.Warn("failed to release history lock", "path", s.path, "err", uerr)
		}
	}()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	records := make([]model.ProgressRecord, 0, len(doc.Progressi))
	for i, e := range doc.Progressi {
		ts, err := time.ParseInLocation(TimestampLayout, e.TimeStamp, time.Local)
		if err != nil {
			return nil, s.fail("parse", fmt.Errorf("record %d: %w", i, err))
		}
		records = append(records, model.ProgressRecord{Timestamp: ts, Score: e.Score})
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records, nil
}

func (s *Store) read() (document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return document{}, nil
		}
		return document{}, s.fail("read", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, s.fail("parse", err)
	}
	return doc, nil
}

func (s *Store) write(doc document) error {
	if doc.Progressi == nil {
		doc.Progressi = []entry{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return s.fail("encode", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(s.path), "progress-*.json")
	if err != nil {
		return s.fail("create temp file for", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmpFile.Write(data); err != nil {
		return s.fail("write", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return s.fail("sync", err)
	}
	if err := tmpFile.Close(); err != nil {
		return s.fail("close", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return s.fail("replace", err)
	}
	return nil
}

func (s *Store) fail(op string, err error) error {
	return &model.PersistenceError{Op: op, Path: s.path, Err: err}
}
