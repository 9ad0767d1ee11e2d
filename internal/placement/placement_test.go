package placement

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/vismem/internal/generator"
	"github.com/verte-zerg/vismem/internal/model"
)

func ids(n int) []model.StimulusID {
	out := make([]model.StimulusID, n)
	for i := range out {
		out[i] = model.StimulusID(fmt.Sprintf("s%02d", i))
	}
	return out
}

func requireSeparated(t *testing.T, result model.PlacementResult, sep int) {
	t.Helper()
	for i, a := range result.Order {
		for _, b := range result.Order[i+1:] {
			pa, pb := result.Placed[a], result.Placed[b]
			dx, dy := abs(pa.X-pb.X), abs(pa.Y-pb.Y)
			require.Truef(t, dx > sep && dy > sep,
				"%s%v and %s%v closer than %d", a, pa, b, pb, sep)
		}
	}
}

func TestPlaceRespectsSeparationAndBounds(t *testing.T) {
	engine := New(generator.NewSeeded(11))
	region := model.Region{Width: 1920, Height: 1080}
	opts := Options{MinSeparation: 50, Margin: 100}

	for trial := 0; trial < 20; trial++ {
		result := engine.Place(ids(8), region, opts)
		require.Len(t, result.Order, len(result.Placed))
		require.Equal(t, 8, len(result.Placed)+len(result.Failed))
		requireSeparated(t, result, opts.MinSeparation)
		for _, p := range result.Placed {
			assert.GreaterOrEqual(t, p.X, 100)
			assert.LessOrEqual(t, p.X, 1820)
			assert.GreaterOrEqual(t, p.Y, 100)
			assert.LessOrEqual(t, p.Y, 980)
		}
	}
}

func TestPlaceReportsFailuresUnderTightConstraints(t *testing.T) {
	engine := New(generator.NewSeeded(12))
	// Both axes must differ by more than 10 inside [5,35], so at most 3 stimuli fit.
	region := model.Region{Width: 40, Height: 40}
	opts := Options{MinSeparation: 10, Margin: 5, MaxAttempts: 200}

	result := engine.Place(ids(12), region, opts)
	require.LessOrEqual(t, len(result.Placed), 3)
	require.NotEmpty(t, result.Failed)
	require.Equal(t, 12, len(result.Placed)+len(result.Failed))
	requireSeparated(t, result, opts.MinSeparation)
	for _, id := range result.Failed {
		_, ok := result.Placed[id]
		require.False(t, ok, "failed id %s also placed", id)
	}
}

func TestPlaceContinuesAfterFailure(t *testing.T) {
	engine := New(generator.NewSeeded(13))
	// Only one position exists; every later id must fail without aborting.
	region := model.Region{Width: 10, Height: 10}
	opts := Options{MinSeparation: 0, Margin: 5, MaxAttempts: 10}

	result := engine.Place(ids(3), region, opts)
	require.Len(t, result.Placed, 1)
	assert.Equal(t, model.Position{X: 5, Y: 5}, result.Placed["s00"])
	assert.Equal(t, []model.StimulusID{"s01", "s02"}, result.Failed)
}

func TestPlaceDegenerateRegion(t *testing.T) {
	engine := New(generator.NewSeeded(14))
	result := engine.Place(ids(2), model.Region{Width: 100, Height: 100}, Options{Margin: 60})
	assert.Empty(t, result.Placed)
	assert.Equal(t, ids(2), result.Failed)
}

func TestPlaceEmpty(t *testing.T) {
	engine := New(nil)
	result := engine.Place(nil, model.Region{Width: 100, Height: 100}, Options{})
	assert.Empty(t, result.Placed)
	assert.Empty(t, result.Failed)
}
