// Package stimulus supplies the candidate stimuli for each modality.
package stimulus

import (
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/vismem/internal/generator"
	"github.com/verte-zerg/vismem/internal/model"
)

// DefaultMax is the configuration bound for word and image modalities.
const DefaultMax = 100

// Source supplies the universe of stimuli for one modality.
type Source interface {
	Modality() model.Modality
	// Max is the largest count a session may request.
	Max() int
	// Available is the number of distinct stimuli in the universe.
	Available() int
	// Sample draws n distinct stimuli without replacement.
	Sample(n int) ([]model.StimulusID, error)
	// SampleExcluding draws n distinct stimuli that are not in exclude.
	SampleExcluding(exclude []model.StimulusID, n int) ([]model.StimulusID, error)
}

// pool is the sampling core shared by every modality. Entries may repeat
// (a word list with duplicate lines); repeated entries weigh more in the draw
// but a sample never holds the same id twice.
type pool struct {
	entries  []model.StimulusID
	distinct int
	gen      *generator.Generator
}

func newPool(entries []model.StimulusID, gen *generator.Generator) pool {
	seen := make(map[model.StimulusID]struct{}, len(entries))
	for _, e := range entries {
		seen[e] = struct{}{}
	}
	if gen == nil {
		gen = generator.New()
	}
	return pool{entries: entries, distinct: len(seen), gen: gen}
}

func (p pool) Available() int {
	return p.distinct
}

func (p pool) Sample(n int) ([]model.StimulusID, error) {
	return p.SampleExcluding(nil, n)
}

func (p pool) SampleExcluding(exclude []model.StimulusID, n int) ([]model.StimulusID, error) {
	if n < 0 {
		n = 0
	}
	skip := make(map[model.StimulusID]struct{}, len(exclude)+n)
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	available := p.distinct
	for id := range skip {
		if p.contains(id) {
			available--
		}
	}
	if n > available {
		return nil, &model.InsufficientUniverseError{Requested: n, Available: available}
	}
	out := make([]model.StimulusID, 0, n)
	if n == 0 {
		return out, nil
	}
	for _, idx := range p.gen.SampleIndices(len(p.entries), len(p.entries)) {
		id := p.entries[idx]
		if _, ok := skip[id]; ok {
			continue
		}
		skip[id] = struct{}{}
		out = append(out, id)
		if len(out) == n {
			break
		}
	}
	return out, nil
}

// MaxLabelWidth is the widest entry in terminal cells.
func (p pool) MaxLabelWidth() int {
	w := 0
	for _, e := range p.entries {
		w = max(w, runewidth.StringWidth(string(e)))
	}
	return w
}

func (p pool) contains(id model.StimulusID) bool {
	for _, e := range p.entries {
		if e == id {
			return true
		}
	}
	return false
}
