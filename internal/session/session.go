// Package session runs one quiz: reveal, recall, scoring and recording.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/vismem/internal/generator"
	"github.com/verte-zerg/vismem/internal/model"
	"github.com/verte-zerg/vismem/internal/placement"
	"github.com/verte-zerg/vismem/internal/stimulus"
)

// Placer computes positions for the initial stimuli.
type Placer interface {
	Place(ids []model.StimulusID, region model.Region, opts placement.Options) model.PlacementResult
}

// Recorder persists the history entry produced at submit.
type Recorder interface {
	Append(ctx context.Context, record model.ProgressRecord) error
}

// Archiver stores the detailed result of a scored session.
type Archiver interface {
	SaveResult(ctx context.Context, result model.SessionResult) error
}

// Layout is the placement request issued at start.
type Layout struct {
	Region  model.Region
	Options placement.Options
}

// Options wires a Session to its collaborators. Source is required.
type Options struct {
	Source    stimulus.Source
	Placer    Placer
	Layout    Layout
	Scheduler Scheduler
	Recorder  Recorder
	Archiver  Archiver
	Generator *generator.Generator
	Logger    *slog.Logger
	Now       func() time.Time
	// OnRecall runs after the reveal timer moved the session to AwaitingRecall.
	// It is called without the session lock held, possibly from another goroutine.
	OnRecall func()
}

// Session is the state machine for one quiz run. It is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	source    stimulus.Source
	placer    Placer
	layout    Layout
	scheduler Scheduler
	recorder  Recorder
	archiver  Archiver
	gen       *generator.Generator
	base      *slog.Logger
	logger    *slog.Logger
	now       func() time.Time
	onRecall  func()

	state     State
	id        string
	config    model.SessionConfig
	initial   []model.StimulusID
	final     []model.StimulusID
	placed    model.PlacementResult
	selected  map[model.StimulusID]struct{}
	timer     Timer
	round     int
	startedAt time.Time
	result    model.SessionResult
}

// New returns a Session in the Configuring state.
func New(opts Options) *Session {
	s := &Session{
		source:    opts.Source,
		placer:    opts.Placer,
		layout:    opts.Layout,
		scheduler: opts.Scheduler,
		recorder:  opts.Recorder,
		archiver:  opts.Archiver,
		gen:       opts.Generator,
		logger:    opts.Logger,
		now:       opts.Now,
		onRecall:  opts.OnRecall,
		state:     Configuring,
	}
	if s.gen == nil {
		s.gen = generator.New()
	}
	if s.placer == nil {
		s.placer = placement.New(s.gen)
	}
	if s.scheduler == nil {
		s.scheduler = RealScheduler
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	s.base = s.logger
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Start validates cfg, draws and places the initial stimuli and schedules the
// end of the reveal phase. On error the session stays in Configuring.
func (s *Session) Start(cfg model.SessionConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Configuring {
		return &model.InvalidStateError{Op: "start", State: s.state.String()}
	}
	if err := Validate(cfg, s.source.Max()); err != nil {
		return err
	}
	if available := s.source.Available(); cfg.FinalCount > available {
		return &model.InsufficientUniverseError{Requested: cfg.FinalCount, Available: available}
	}
	initial, err := s.source.Sample(cfg.InitialCount)
	if err != nil {
		return fmt.Errorf("sample initial stimuli: %w", err)
	}

	placed := s.placer.Place(initial, s.layout.Region, s.layout.Options)
	s.id = uuid.NewString()
	s.logger = s.base.With("session", s.id, "modality", s.source.Modality().String())
	if len(placed.Failed) > 0 {
		s.logger.Warn("could not place stimuli without overlap",
			"failed", len(placed.Failed),
			"requested", len(initial),
			"min_separation", s.layout.Options.MinSeparation)
	}

	s.config = cfg
	s.initial = initial
	s.placed = placed
	s.startedAt = s.now()
	s.state = Revealing
	s.round++
	round := s.round
	s.timer = s.scheduler.AfterFunc(cfg.Duration(), func() { s.endReveal(round) })
	s.logger.Info("session started",
		"duration_seconds", cfg.DurationSeconds,
		"initial", cfg.InitialCount,
		"final", cfg.FinalCount)
	return nil
}

// Cancel stops a pending reveal and returns the session to Configuring.
// It reports whether anything was cancelled.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Revealing {
		return false
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.round++
	s.timer = nil
	s.state = Configuring
	s.initial = nil
	s.placed = model.PlacementResult{}
	s.logger.Info("reveal cancelled")
	return true
}

func (s *Session) endReveal(round int) {
	s.mu.Lock()
	if s.state != Revealing || round != s.round {
		s.mu.Unlock()
		return
	}
	final := make([]model.StimulusID, 0, s.config.FinalCount)
	final = append(final, s.initial...)
	if n := s.config.FinalCount - s.config.InitialCount; n > 0 {
		distractors, err := s.source.SampleExcluding(s.initial, n)
		if err != nil {
			s.logger.Error("failed to draw distractors", "err", err)
		}
		final = append(final, distractors...)
	}
	s.gen.Shuffle(len(final), func(i, j int) { final[i], final[j] = final[j], final[i] })

	s.final = final
	s.selected = make(map[model.StimulusID]struct{}, len(final))
	s.timer = nil
	s.state = AwaitingRecall
	hook := s.onRecall
	s.logger.Debug("reveal ended", "candidates", len(final))
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// Toggle flips the selection of id during recall.
func (s *Session) Toggle(id model.StimulusID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != AwaitingRecall {
		return &model.InvalidStateError{Op: "toggle selection", State: s.state.String()}
	}
	if !contains(s.final, id) {
		return &model.InvalidSelectionError{ID: id}
	}
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
	} else {
		s.selected[id] = struct{}{}
	}
	return nil
}

// Submit scores the selections, freezes the session and records the result.
// The session is Scored even when recording fails; the recorder error is returned.
func (s *Session) Submit(ctx context.Context) (model.SessionResult, error) {
	s.mu.Lock()
	if s.state != AwaitingRecall {
		state := s.state
		s.mu.Unlock()
		return model.SessionResult{}, &model.InvalidStateError{Op: "submit", State: state.String()}
	}
	endedAt := s.now()
	result := model.SessionResult{
		ID:        s.id,
		Modality:  s.source.Modality(),
		Config:    s.config,
		StartedAt: s.startedAt,
		EndedAt:   endedAt,
		Initial:   append([]model.StimulusID(nil), s.initial...),
		Final:     append([]model.StimulusID(nil), s.final...),
		Unplaced:  append([]model.StimulusID(nil), s.placed.Failed...),
	}
	for _, id := range s.final {
		if _, ok := s.selected[id]; !ok {
			continue
		}
		result.Selected = append(result.Selected, id)
		if contains(s.initial, id) {
			result.Correct = append(result.Correct, id)
		} else {
			result.FalseAlarms = append(result.FalseAlarms, id)
		}
	}
	for _, id := range s.initial {
		if _, ok := s.selected[id]; !ok {
			result.Missed = append(result.Missed, id)
		}
	}
	result.Score = len(result.Correct)
	s.result = result
	s.state = Scored
	recorder, archiver, logger := s.recorder, s.archiver, s.logger
	s.mu.Unlock()

	logger.Info("session scored", "score", result.ScoreLabel(), "false_alarms", len(result.FalseAlarms))

	if archiver != nil {
		if err := archiver.SaveResult(ctx, result); err != nil {
			logger.Error("failed to archive session", "err", err)
		}
	}
	if recorder != nil {
		record := model.NewProgressRecord(endedAt, result.Score, result.Config.InitialCount)
		if err := recorder.Append(ctx, record); err != nil {
			return result, fmt.Errorf("record progress: %w", err)
		}
	}
	return result, nil
}

// State returns the current lifecycle stage.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID returns the session id assigned at start.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Modality returns the stimulus kind of the session.
func (s *Session) Modality() model.Modality {
	return s.source.Modality()
}

// Source returns the stimulus source.
func (s *Session) Source() stimulus.Source {
	return s.source
}

// Config returns the configuration accepted by Start.
func (s *Session) Config() model.SessionConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Initial returns the stimuli shown during the reveal phase, in draw order.
func (s *Session) Initial() []model.StimulusID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.StimulusID(nil), s.initial...)
}

// Final returns the shuffled recall candidates.
func (s *Session) Final() []model.StimulusID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.StimulusID(nil), s.final...)
}

// Placement returns the positions computed at start.
func (s *Session) Placement() model.PlacementResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placed
}

// Selected reports whether id is currently selected.
func (s *Session) Selected(id model.StimulusID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.selected[id]
	return ok
}

// Selections returns the selected stimuli in candidate order.
func (s *Session) Selections() []model.StimulusID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.StimulusID, 0, len(s.selected))
	for _, id := range s.final {
		if _, ok := s.selected[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Score returns the number of correctly recalled stimuli once the session is Scored.
func (s *Session) Score() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result.Score, s.state == Scored
}

// Result returns the scored result once the session is Scored.
func (s *Session) Result() (model.SessionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.state == Scored
}

func contains(ids []model.StimulusID, id model.StimulusID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
