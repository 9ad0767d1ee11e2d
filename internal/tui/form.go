package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/vismem/internal/model"
)

const (
	fieldDuration = iota
	fieldInitial
	fieldFinal
)

// form collects the session parameters before a quiz starts.
type form struct {
	inputs []textinput.Model
	index  int
	max    int
	err    string
}

func newForm(defaults model.SessionConfig, max int) form {
	f := form{
		inputs: []textinput.Model{
			newFieldInput("Duration (s): "),
			newFieldInput("Stimuli to memorise: "),
			newFieldInput("Candidates at recall: "),
		},
		max: max,
	}
	if defaults.DurationSeconds > 0 {
		f.inputs[fieldDuration].SetValue(strconv.FormatFloat(defaults.DurationSeconds, 'f', -1, 64))
	}
	if defaults.InitialCount > 0 {
		f.inputs[fieldInitial].SetValue(strconv.Itoa(defaults.InitialCount))
	}
	if defaults.FinalCount > 0 {
		f.inputs[fieldFinal].SetValue(strconv.Itoa(defaults.FinalCount))
	}
	return f
}

func newFieldInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 8
	input.Width = 10
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

// focus moves focus to field idx, wrapping around at both ends.
func (f *form) focus(idx int) tea.Cmd {
	count := len(f.inputs)
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	f.index = idx
	var cmd tea.Cmd
	for i := range f.inputs {
		if i == idx {
			cmd = f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
	return cmd
}

func (f *form) setWidth(width int) {
	for i := range f.inputs {
		f.inputs[i].Width = maxInt(4, min(10, width-len(f.inputs[i].Prompt)-2))
	}
}

func (f *form) update(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "down":
		return f.focus(f.index + 1)
	case "shift+tab", "up":
		return f.focus(f.index - 1)
	}
	var cmd tea.Cmd
	f.inputs[f.index], cmd = f.inputs[f.index].Update(msg)
	return cmd
}

// config parses the fields. Range checks are left to the session.
func (f *form) config() (model.SessionConfig, error) {
	duration, err := strconv.ParseFloat(strings.TrimSpace(f.inputs[fieldDuration].Value()), 64)
	if err != nil {
		return model.SessionConfig{}, fmt.Errorf("duration must be a number of seconds")
	}
	initial, err := strconv.Atoi(strings.TrimSpace(f.inputs[fieldInitial].Value()))
	if err != nil {
		return model.SessionConfig{}, fmt.Errorf("stimuli to memorise must be a whole number")
	}
	final, err := strconv.Atoi(strings.TrimSpace(f.inputs[fieldFinal].Value()))
	if err != nil {
		return model.SessionConfig{}, fmt.Errorf("candidates at recall must be a whole number")
	}
	return model.SessionConfig{
		DurationSeconds: duration,
		InitialCount:    initial,
		FinalCount:      final,
	}, nil
}

func (f *form) view(modality model.Modality) string {
	lines := []string{
		titleStyle.Render(fmt.Sprintf("Visual memory: %s", modality)),
		mutedStyle.Render(fmt.Sprintf("Up to %d distinct stimuli", f.max)),
		"",
	}
	for _, input := range f.inputs {
		lines = append(lines, input.View())
	}
	if f.err != "" {
		lines = append(lines, "", errorStyle.Render(f.err))
	}
	return strings.Join(lines, "\n")
}
