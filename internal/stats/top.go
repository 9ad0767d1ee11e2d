package stats

import (
	"github.com/verte-zerg/vismem/internal/model"
)

// MostMissed returns up to n shown stimuli with the lowest recall rate.
func MostMissed(aggs []model.StimulusAggregate, n int) []model.StimulusID {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	items := make([]model.StimulusAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.Shown > 0 && agg.Recalled < agg.Shown {
			items = append(items, agg)
		}
	}
	sortByDifficulty(items)
	if n > len(items) {
		n = len(items)
	}
	out := make([]model.StimulusID, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, items[i].Stimulus)
	}
	return out
}
