package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/vismem/internal/generator"
	"github.com/verte-zerg/vismem/internal/model"
	"github.com/verte-zerg/vismem/internal/placement"
	"github.com/verte-zerg/vismem/internal/stimulus"
)

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// fire runs the latest callback regardless of Stop, like a timer that raced its cancel.
func (s *fakeScheduler) fire() {
	s.mu.Lock()
	t := s.timers[len(s.timers)-1]
	s.mu.Unlock()
	t.f()
}

type memRecorder struct {
	records []model.ProgressRecord
	err     error
}

func (r *memRecorder) Append(_ context.Context, rec model.ProgressRecord) error {
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, rec)
	return nil
}

type memArchiver struct {
	results []model.SessionResult
	err     error
}

func (a *memArchiver) SaveResult(_ context.Context, res model.SessionResult) error {
	a.results = append(a.results, res)
	return a.err
}

type fixture struct {
	session   *Session
	scheduler *fakeScheduler
	recorder  *memRecorder
	archiver  *memArchiver
	recalls   int
}

func newFixture(t *testing.T, src stimulus.Source) *fixture {
	t.Helper()
	gen := generator.NewSeeded(7)
	if src == nil {
		src = stimulus.NewLetters(gen)
	}
	f := &fixture{
		scheduler: &fakeScheduler{},
		recorder:  &memRecorder{},
		archiver:  &memArchiver{},
	}
	f.session = New(Options{
		Source:    src,
		Placer:    placement.New(gen),
		Layout:    Layout{Region: model.Region{Width: 1200, Height: 800}, Options: placement.Options{MinSeparation: 50, Margin: 100}},
		Scheduler: f.scheduler,
		Recorder:  f.recorder,
		Archiver:  f.archiver,
		Generator: gen,
		Now:       func() time.Time { return time.Date(2024, 3, 9, 18, 45, 31, 0, time.Local) },
		OnRecall:  func() { f.recalls++ },
	})
	return f
}

func TestLettersSessionScoresPerfectRecall(t *testing.T) {
	f := newFixture(t, nil)
	s := f.session

	require.NoError(t, s.Start(model.SessionConfig{DurationSeconds: 1.0, InitialCount: 3, FinalCount: 5}))
	assert.Equal(t, Revealing, s.State())
	require.Len(t, f.scheduler.timers, 1)
	assert.Equal(t, time.Second, f.scheduler.timers[0].d)

	initial := s.Initial()
	require.Len(t, initial, 3)
	assertDistinct(t, initial)

	f.scheduler.fire()
	assert.Equal(t, AwaitingRecall, s.State())
	assert.Equal(t, 1, f.recalls)

	final := s.Final()
	require.Len(t, final, 5)
	assertDistinct(t, final)
	assert.Subset(t, final, initial)

	for _, id := range initial {
		require.NoError(t, s.Toggle(id))
	}
	res, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Scored, s.State())
	assert.Equal(t, 3, res.Score)
	assert.Equal(t, "3/3", res.ScoreLabel())
	score, ok := s.Score()
	assert.True(t, ok)
	assert.Equal(t, 3, score)
	assert.Empty(t, res.FalseAlarms)
	assert.Empty(t, res.Missed)

	require.Len(t, f.recorder.records, 1)
	assert.Equal(t, "3/3", f.recorder.records[0].Score)
	assert.Equal(t, time.Date(2024, 3, 9, 18, 45, 0, 0, time.Local), f.recorder.records[0].Timestamp)
	require.Len(t, f.archiver.results, 1)
	assert.Equal(t, s.ID(), f.archiver.results[0].ID)
}

func TestScoreCountsOnlyInitialSelections(t *testing.T) {
	f := newFixture(t, nil)
	s := f.session
	require.NoError(t, s.Start(model.SessionConfig{DurationSeconds: 2, InitialCount: 4, FinalCount: 10}))
	f.scheduler.fire()

	initial := s.Initial()
	var distractors []model.StimulusID
	for _, id := range s.Final() {
		if !containsID(initial, id) {
			distractors = append(distractors, id)
		}
	}
	require.Len(t, distractors, 6)

	require.NoError(t, s.Toggle(initial[0]))
	require.NoError(t, s.Toggle(initial[1]))
	require.NoError(t, s.Toggle(distractors[0]))
	require.NoError(t, s.Toggle(distractors[1]))
	// toggling twice deselects
	require.NoError(t, s.Toggle(distractors[1]))
	require.NoError(t, s.Toggle(distractors[1]))
	require.NoError(t, s.Toggle(distractors[1]))

	res, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Score)
	assert.ElementsMatch(t, []model.StimulusID{initial[0], initial[1]}, res.Correct)
	assert.ElementsMatch(t, []model.StimulusID{distractors[0]}, res.FalseAlarms)
	assert.ElementsMatch(t, []model.StimulusID{initial[2], initial[3]}, res.Missed)
	assert.Equal(t, "2/4", f.recorder.records[0].Score)
}

func TestStartRejectsInitialAboveLetterBound(t *testing.T) {
	f := newFixture(t, nil)
	s := f.session

	err := s.Start(model.SessionConfig{DurationSeconds: 1, InitialCount: 30, FinalCount: 30})
	var ve *model.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "initial_count", ve.Field)
	assert.Equal(t, Configuring, s.State())
	assert.Empty(t, f.scheduler.timers)
	assert.Empty(t, s.Initial())
}

func TestStartValidation(t *testing.T) {
	cases := []struct {
		name  string
		cfg   model.SessionConfig
		field string
	}{
		{"zero duration", model.SessionConfig{DurationSeconds: 0, InitialCount: 3, FinalCount: 5}, "duration_seconds"},
		{"negative duration", model.SessionConfig{DurationSeconds: -1, InitialCount: 3, FinalCount: 5}, "duration_seconds"},
		{"duration above cap", model.SessionConfig{DurationSeconds: MaxDurationSeconds + 1, InitialCount: 3, FinalCount: 5}, "duration_seconds"},
		{"zero initial", model.SessionConfig{DurationSeconds: 1, InitialCount: 0, FinalCount: 5}, "initial_count"},
		{"final below initial", model.SessionConfig{DurationSeconds: 1, InitialCount: 5, FinalCount: 4}, "final_count"},
		{"final above bound", model.SessionConfig{DurationSeconds: 1, InitialCount: 5, FinalCount: 27}, "final_count"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			err := f.session.Start(tc.cfg)
			var ve *model.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tc.field, ve.Field)
			assert.Equal(t, Configuring, f.session.State())
		})
	}
}

func TestStartAcceptsBoundaryCounts(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.session.Start(model.SessionConfig{DurationSeconds: 0.5, InitialCount: 26, FinalCount: 26}))
	assert.Len(t, f.session.Initial(), 26)
}

func TestEqualCountsAddNoDistractors(t *testing.T) {
	f := newFixture(t, nil)
	s := f.session
	require.NoError(t, s.Start(model.SessionConfig{DurationSeconds: 1, InitialCount: 4, FinalCount: 4}))
	f.scheduler.fire()

	assert.ElementsMatch(t, s.Initial(), s.Final())
}

func TestStartRejectsSmallUniverse(t *testing.T) {
	gen := generator.NewSeeded(1)
	f := newFixture(t, stimulus.NewWords([]string{"apple", "pear", "plum", "fig"}, 100, gen))

	err := f.session.Start(model.SessionConfig{DurationSeconds: 1, InitialCount: 3, FinalCount: 6})
	var ue *model.InsufficientUniverseError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, 6, ue.Requested)
	assert.Equal(t, 4, ue.Available)
	assert.Equal(t, Configuring, f.session.State())
}

func TestToggleOutsideCandidatesFails(t *testing.T) {
	gen := generator.NewSeeded(3)
	f := newFixture(t, stimulus.NewWords([]string{"one", "two", "three", "four", "five"}, 100, gen))
	s := f.session
	require.NoError(t, s.Start(model.SessionConfig{DurationSeconds: 1, InitialCount: 2, FinalCount: 3}))
	f.scheduler.fire()

	err := s.Toggle("seven")
	var se *model.InvalidSelectionError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, model.StimulusID("seven"), se.ID)
	assert.Empty(t, s.Selections())
}

func TestOperationsOutOfState(t *testing.T) {
	f := newFixture(t, nil)
	s := f.session
	var ie *model.InvalidStateError

	require.True(t, errors.As(s.Toggle("A"), &ie))
	_, err := s.Submit(context.Background())
	require.True(t, errors.As(err, &ie))

	cfg := model.SessionConfig{DurationSeconds: 1, InitialCount: 2, FinalCount: 3}
	require.NoError(t, s.Start(cfg))
	require.True(t, errors.As(s.Start(cfg), &ie))
	assert.Equal(t, "start", ie.Op)
	assert.Equal(t, "revealing", ie.State)
	require.True(t, errors.As(s.Toggle(s.Initial()[0]), &ie))

	f.scheduler.fire()
	_, err = s.Submit(context.Background())
	require.NoError(t, err)

	_, err = s.Submit(context.Background())
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "scored", ie.State)
	require.True(t, errors.As(s.Toggle(s.Final()[0]), &ie))
	assert.Len(t, f.recorder.records, 1)
}

func TestCancelStopsPendingReveal(t *testing.T) {
	f := newFixture(t, nil)
	s := f.session
	require.NoError(t, s.Start(model.SessionConfig{DurationSeconds: 5, InitialCount: 3, FinalCount: 5}))

	assert.True(t, s.Cancel())
	assert.True(t, f.scheduler.timers[0].stopped)
	assert.Equal(t, Configuring, s.State())

	// A callback that already escaped Stop must not advance the session.
	f.scheduler.fire()
	assert.Equal(t, Configuring, s.State())
	assert.Zero(t, f.recalls)

	assert.False(t, s.Cancel())
	require.NoError(t, s.Start(model.SessionConfig{DurationSeconds: 1, InitialCount: 3, FinalCount: 5}))
	f.scheduler.fire()
	assert.Equal(t, AwaitingRecall, s.State())
	assert.Equal(t, 1, f.recalls)
}

func TestSubmitReturnsRecorderError(t *testing.T) {
	f := newFixture(t, nil)
	f.recorder.err = &model.PersistenceError{Op: "write", Path: "progress.json", Err: errors.New("disk full")}
	s := f.session
	require.NoError(t, s.Start(model.SessionConfig{DurationSeconds: 1, InitialCount: 2, FinalCount: 2}))
	f.scheduler.fire()

	res, err := s.Submit(context.Background())
	var pe *model.PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, Scored, s.State())
	assert.Equal(t, "0/2", res.ScoreLabel())

	got, ok := s.Result()
	assert.True(t, ok)
	assert.Equal(t, res.ID, got.ID)
}

func TestArchiverErrorDoesNotFailSubmit(t *testing.T) {
	f := newFixture(t, nil)
	f.archiver.err = errors.New("database is locked")
	s := f.session
	require.NoError(t, s.Start(model.SessionConfig{DurationSeconds: 1, InitialCount: 2, FinalCount: 2}))
	f.scheduler.fire()

	_, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Len(t, f.recorder.records, 1)
}

func TestPlacementFailuresAreReported(t *testing.T) {
	gen := generator.NewSeeded(11)
	s := New(Options{
		Source:    stimulus.NewLetters(gen),
		Layout:    Layout{Region: model.Region{Width: 10, Height: 10}, Options: placement.Options{MinSeparation: 50, Margin: 5}},
		Scheduler: &fakeScheduler{},
		Generator: gen,
	})
	require.NoError(t, s.Start(model.SessionConfig{DurationSeconds: 1, InitialCount: 4, FinalCount: 4}))

	p := s.Placement()
	assert.Len(t, p.Placed, 1)
	assert.Len(t, p.Failed, 3)
}

func TestRealSchedulerMovesToRecall(t *testing.T) {
	done := make(chan struct{})
	s := New(Options{
		Source:   stimulus.NewLetters(generator.NewSeeded(5)),
		OnRecall: func() { close(done) },
	})
	require.NoError(t, s.Start(model.SessionConfig{DurationSeconds: 0.01, InitialCount: 2, FinalCount: 4}))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("reveal did not end")
	}
	assert.Equal(t, AwaitingRecall, s.State())
	assert.Len(t, s.Final(), 4)
}

func assertDistinct(t *testing.T, ids []model.StimulusID) {
	t.Helper()
	seen := make(map[model.StimulusID]bool, len(ids))
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate %q", id)
		seen[id] = true
	}
}

func containsID(ids []model.StimulusID, id model.StimulusID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
