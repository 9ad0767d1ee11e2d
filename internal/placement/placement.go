// Package placement scatters stimuli over a region without overlap.
package placement

import (
	"github.com/verte-zerg/vismem/internal/generator"
	"github.com/verte-zerg/vismem/internal/model"
)

// DefaultMaxAttempts is the per-stimulus draw budget.
const DefaultMaxAttempts = 5000

// Options constrains one placement batch.
type Options struct {
	// MinSeparation is the gap both axes must exceed between any two accepted positions.
	MinSeparation int
	// Margin keeps positions at least this far from every edge.
	Margin int
	// MaxAttempts caps draws per stimulus; zero means DefaultMaxAttempts.
	MaxAttempts int
}

// Engine is a rejection sampler. It keeps no state between calls beyond its random source.
type Engine struct {
	gen *generator.Generator
}

// New returns an Engine drawing from gen. A nil gen uses a time-seeded generator.
func New(gen *generator.Generator) *Engine {
	if gen == nil {
		gen = generator.New()
	}
	return &Engine{gen: gen}
}

// Place assigns a position to each id in order. A candidate is uniform in
// [margin, width-margin] x [margin, height-margin] and is accepted only when
// |dx| > MinSeparation and |dy| > MinSeparation against every accepted position.
// Ids that exhaust their attempts are reported in Failed and placement continues.
func (e *Engine) Place(ids []model.StimulusID, region model.Region, opts Options) model.PlacementResult {
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	result := model.PlacementResult{
		Placed: make(map[model.StimulusID]model.Position, len(ids)),
		Order:  make([]model.StimulusID, 0, len(ids)),
	}
	minX, maxX := opts.Margin, region.Width-opts.Margin
	minY, maxY := opts.Margin, region.Height-opts.Margin
	if maxX < minX || maxY < minY {
		result.Failed = append(result.Failed, ids...)
		return result
	}

	accepted := make([]model.Position, 0, len(ids))
	for _, id := range ids {
		placed := false
		for i := 0; i < attempts; i++ {
			candidate := model.Position{
				X: e.gen.IntRange(minX, maxX),
				Y: e.gen.IntRange(minY, maxY),
			}
			if fits(candidate, accepted, opts.MinSeparation) {
				accepted = append(accepted, candidate)
				result.Placed[id] = candidate
				result.Order = append(result.Order, id)
				placed = true
				break
			}
		}
		if !placed {
			result.Failed = append(result.Failed, id)
		}
	}
	return result
}

func fits(candidate model.Position, accepted []model.Position, sep int) bool {
	for _, p := range accepted {
		if abs(candidate.X-p.X) <= sep || abs(candidate.Y-p.Y) <= sep {
			return false
		}
	}
	return true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
