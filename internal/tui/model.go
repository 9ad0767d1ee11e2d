// Package tui provides the Bubble Tea quiz interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/vismem/internal/generator"
	"github.com/verte-zerg/vismem/internal/model"
	"github.com/verte-zerg/vismem/internal/placement"
	"github.com/verte-zerg/vismem/internal/session"
	"github.com/verte-zerg/vismem/internal/stimulus"
)

type phase int

const (
	phaseConfig phase = iota
	phaseReveal
	phaseRecall
	phaseResult
)

const (
	tickInterval     = 100 * time.Millisecond
	defaultCols      = 80
	defaultRows      = 24
	defaultThumbCols = 8
)

// History is the persisted log read for the footer and written at submit.
type History interface {
	session.Recorder
	Load(ctx context.Context) ([]model.ProgressRecord, error)
}

// Options configures the quiz UI.
type Options struct {
	Source   stimulus.Source
	Defaults model.SessionConfig
	// Spacing is the minimum separation in placement pixels.
	Spacing int
	// ThumbnailCols is the width of image thumbnails in cells.
	ThumbnailCols int
	History       History
	Archiver      session.Archiver
	Generator     *generator.Generator
	Scheduler     session.Scheduler
	Logger        *slog.Logger
}

type recallMsg struct {
	session *session.Session
}

type tickMsg time.Time

// Model implements the Bubble Tea quiz UI.
type Model struct {
	opts   Options
	logger *slog.Logger

	width  int
	height int

	phase   phase
	form    form
	session *session.Session
	recall  chan struct{}

	deadline time.Time
	now      func() time.Time

	cursor    int
	grid      viewport.Model
	thumbs    *thumbnailCache
	result    model.SessionResult
	saveErr   string
	lastScore string
}

var (
	stimulusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	candidateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7CC47C")).Bold(true)
	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Reverse(true)
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#E0B050"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs a quiz TUI model.
func NewModel(opts Options) *Model {
	if opts.Generator == nil {
		opts.Generator = generator.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.ThumbnailCols <= 0 {
		opts.ThumbnailCols = defaultThumbCols
	}
	m := &Model{
		opts:   opts,
		logger: opts.Logger,
		form:   newForm(opts.Defaults, opts.Source.Max()),
		grid:   viewport.New(0, 0),
		now:    time.Now,
	}
	if th, ok := opts.Source.(Thumbnailer); ok {
		m.thumbs = newThumbnailCache(th, opts.ThumbnailCols)
	}
	m.loadLastScore()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.form.focus(0)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.form.setWidth(msg.Width)
		m.refreshGrid()
		return m, nil
	case recallMsg:
		if msg.session != m.session || m.phase != phaseReveal {
			return m, nil
		}
		m.enterRecall()
		return m, tea.ClearScreen
	case tickMsg:
		if m.phase != phaseReveal {
			return m, nil
		}
		return m, tick()
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelReveal()
			return m, tea.Quit
		}
		switch m.phase {
		case phaseConfig:
			return m.updateConfig(msg)
		case phaseReveal:
			return m.updateReveal(msg)
		case phaseRecall:
			return m.updateRecall(msg)
		case phaseResult:
			return m.updateResult(msg)
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	width, height := m.size()
	var body string
	switch m.phase {
	case phaseConfig:
		body = lipgloss.Place(width, height-1, lipgloss.Center, lipgloss.Center, m.form.view(m.opts.Source.Modality()))
	case phaseReveal:
		body = m.renderReveal(width, height-1)
	case phaseRecall:
		body = m.renderRecall(width, height-1)
	case phaseResult:
		body = lipgloss.Place(width, height-1, lipgloss.Center, lipgloss.Center, m.renderResult())
	}
	footer := lipgloss.Place(width, 1, lipgloss.Center, lipgloss.Center, m.renderFooter())
	return body + "\n" + footer
}

func (m *Model) size() (int, int) {
	width, height := m.width, m.height
	if width <= 0 {
		width = defaultCols
	}
	if height <= 1 {
		height = defaultRows
	}
	return width, height
}

func (m *Model) updateConfig(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyEnter:
		cfg, err := m.form.config()
		if err != nil {
			m.form.err = err.Error()
			return m, nil
		}
		return m.start(cfg)
	}
	return m, m.form.update(msg)
}

func (m *Model) start(cfg model.SessionConfig) (tea.Model, tea.Cmd) {
	ch := make(chan struct{}, 1)
	sess := session.New(session.Options{
		Source:    m.opts.Source,
		Placer:    placement.New(m.opts.Generator),
		Layout:    m.layout(),
		Scheduler: m.opts.Scheduler,
		Recorder:  m.opts.History,
		Archiver:  m.opts.Archiver,
		Generator: m.opts.Generator,
		Logger:    m.logger,
		OnRecall: func() {
			select {
			case ch <- struct{}{}:
			default:
			}
		},
	})
	if err := sess.Start(cfg); err != nil {
		m.form.err = describeStartError(err)
		return m, nil
	}
	m.form.err = ""
	m.session = sess
	m.recall = ch
	m.phase = phaseReveal
	m.deadline = m.now().Add(cfg.Duration())
	return m, tea.Batch(waitForRecall(sess, ch), tick(), tea.ClearScreen)
}

const placementMargin = 100

// layout sizes the placement region to the terminal, minus the footer line
// and the footprint of the widest stimulus. Thumbnails are square in pixels,
// so a separation of at least their edge keeps them from overlapping.
func (m *Model) layout() session.Layout {
	width, height := m.size()
	footCols, footRows := 1, 1
	sep := m.opts.Spacing
	if m.thumbs != nil {
		footCols, footRows = m.opts.ThumbnailCols, m.opts.ThumbnailCols/2
		sep = max(sep, m.opts.ThumbnailCols*cellWidthPx)
	} else if w, ok := m.opts.Source.(interface{ MaxLabelWidth() int }); ok {
		footCols = w.MaxLabelWidth()
	}
	return session.Layout{
		Region: regionFor(width, height-1, footCols, footRows),
		Options: placement.Options{
			MinSeparation: sep,
			Margin:        placementMargin,
		},
	}
}

func waitForRecall(sess *session.Session, ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return recallMsg{session: sess}
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) updateReveal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		m.cancelReveal()
		m.phase = phaseConfig
		return m, tea.Batch(m.form.focus(m.form.index), tea.ClearScreen)
	}
	return m, nil
}

// cancelReveal stops a pending reveal and releases the recall waiter.
func (m *Model) cancelReveal() {
	if m.phase != phaseReveal || m.session == nil {
		return
	}
	if m.session.Cancel() {
		close(m.recall)
	}
}

func (m *Model) enterRecall() {
	m.phase = phaseRecall
	m.cursor = 0
	m.refreshGrid()
}

func (m *Model) updateRecall(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := len(m.session.Final())
	switch msg.String() {
	case "left", "h":
		m.cursor = moveCursor(m.cursor, count, 0, -1)
	case "right", "l":
		m.cursor = moveCursor(m.cursor, count, 0, 1)
	case "up", "k":
		m.cursor = moveCursor(m.cursor, count, -1, 0)
	case "down", "j":
		m.cursor = moveCursor(m.cursor, count, 1, 0)
	case " ", "space", "x":
		final := m.session.Final()
		if m.cursor < len(final) {
			if err := m.session.Toggle(final[m.cursor]); err != nil {
				m.logger.Error("toggle failed", "err", err)
			}
		}
	case "enter":
		return m.submit()
	default:
		var cmd tea.Cmd
		m.grid, cmd = m.grid.Update(msg)
		return m, cmd
	}
	m.refreshGrid()
	return m, nil
}

func (m *Model) submit() (tea.Model, tea.Cmd) {
	res, err := m.session.Submit(context.Background())
	m.saveErr = ""
	if err != nil {
		var stateErr *model.InvalidStateError
		if errors.As(err, &stateErr) {
			m.logger.Error("submit rejected", "err", err)
			return m, nil
		}
		m.logger.Error("failed to record progress", "err", err)
		m.saveErr = fmt.Sprintf("Could not save progress: %v", err)
	}
	m.result = res
	m.lastScore = res.ScoreLabel()
	m.phase = phaseResult
	return m, tea.ClearScreen
}

func (m *Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "enter", "n":
		m.phase = phaseConfig
		m.session = nil
		return m, tea.Batch(m.form.focus(m.form.index), tea.ClearScreen)
	}
	return m, nil
}

func (m *Model) renderReveal(width, height int) string {
	c := newCanvas(width, height)
	if m.session == nil {
		return c.String()
	}
	placed := m.session.Placement()
	for _, id := range placed.Order {
		col, row := cellOf(placed.Placed[id])
		if m.thumbs != nil {
			c.drawBlock(col, row, m.thumbs.get(id))
			continue
		}
		c.drawText(col, row, string(id), stimulusStyle)
	}
	if n := len(placed.Failed); n > 0 {
		c.drawText(0, 0, fmt.Sprintf("%d of %d stimuli could not be placed", n, len(placed.Failed)+len(placed.Order)), warnStyle)
	}
	return c.String()
}

func (m *Model) renderRecall(width, height int) string {
	header := titleStyle.Render(fmt.Sprintf("Select the %d stimuli you saw", m.session.Config().InitialCount))
	m.grid.Width = width
	m.grid.Height = maxInt(1, height-2)
	return lipgloss.JoinVertical(lipgloss.Left, header, "", m.grid.View())
}

// refreshGrid rebuilds the recall grid and scrolls the cursor row into view.
func (m *Model) refreshGrid() {
	if m.phase != phaseRecall || m.session == nil {
		return
	}
	width, height := m.size()
	final := m.session.Final()
	cells := make([]gridCell, len(final))
	for i, id := range final {
		cells[i] = gridCell{id: id, selected: m.session.Selected(id), cursor: i == m.cursor}
		if m.thumbs != nil {
			cells[i].art = m.thumbs.get(id)
		}
	}
	minWidth := 0
	if m.thumbs != nil {
		minWidth = m.opts.ThumbnailCols
	}
	lines, top, bottom := renderGrid(cells, gridCellWidth(final, width, minWidth))
	m.grid.Width = width
	m.grid.Height = maxInt(1, height-3)
	m.grid.SetContent(strings.Join(lines, "\n"))
	switch {
	case top < m.grid.YOffset:
		m.grid.SetYOffset(top)
	case bottom > m.grid.YOffset+m.grid.Height:
		m.grid.SetYOffset(bottom - m.grid.Height)
	}
}

func (m *Model) renderResult() string {
	res := m.result
	lines := []string{
		titleStyle.Render(fmt.Sprintf("Score: %s", res.ScoreLabel())),
		"",
		fmt.Sprintf("Selected: %s", joinIDs(res.Selected)),
		fmt.Sprintf("Correct:  %s", joinIDs(res.Correct)),
		fmt.Sprintf("Shown:    %s", joinIDs(res.Initial)),
	}
	if len(res.Missed) > 0 {
		lines = append(lines, fmt.Sprintf("Missed:   %s", joinIDs(res.Missed)))
	}
	if len(res.FalseAlarms) > 0 {
		lines = append(lines, fmt.Sprintf("Not shown: %s", joinIDs(res.FalseAlarms)))
	}
	if m.saveErr != "" {
		lines = append(lines, "", errorStyle.Render(m.saveErr))
	}
	width, _ := m.size()
	for i, line := range lines {
		lines[i] = runewidth.Truncate(line, maxInt(10, width-2), "…")
	}
	return strings.Join(lines, "\n")
}

func joinIDs(ids []model.StimulusID) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}

func (m *Model) renderFooter() string {
	var segments []string
	switch m.phase {
	case phaseConfig:
		segments = append(segments, "tab: next field", "enter: start", "esc: quit")
	case phaseReveal:
		remaining := m.deadline.Sub(m.now())
		if remaining < 0 {
			remaining = 0
		}
		segments = append(segments, fmt.Sprintf("Memorise %.1fs", remaining.Seconds()))
		if m.session != nil {
			if n := len(m.session.Placement().Failed); n > 0 {
				segments = append(segments, fmt.Sprintf("Unplaced %d", n))
			}
		}
		segments = append(segments, "esc: cancel")
	case phaseRecall:
		segments = append(segments,
			fmt.Sprintf("Selected %d/%d", len(m.session.Selections()), m.session.Config().InitialCount),
			"arrows: move", "space: toggle", "enter: submit")
	case phaseResult:
		segments = append(segments, "enter: new quiz", "q: quit")
	}
	if m.lastScore != "" && m.phase != phaseResult {
		segments = append(segments, fmt.Sprintf("Last %s", m.lastScore))
	}
	if m.thumbs != nil && m.thumbs.failures() > 0 {
		segments = append(segments, fmt.Sprintf("%d images failed to load", m.thumbs.failures()))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func (m *Model) loadLastScore() {
	if m.opts.History == nil {
		return
	}
	records, err := m.opts.History.Load(context.Background())
	if err != nil {
		m.logger.Warn("failed to load progress", "err", err)
		return
	}
	if len(records) > 0 {
		m.lastScore = records[0].Score
	}
}

func describeStartError(err error) string {
	var universe *model.InsufficientUniverseError
	if errors.As(err, &universe) {
		return fmt.Sprintf("Only %d distinct stimuli are available; lower the final count.", universe.Available)
	}
	return err.Error()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
