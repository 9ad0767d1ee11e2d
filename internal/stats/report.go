package stats

import (
	"context"

	"github.com/verte-zerg/vismem/internal/model"
	"github.com/verte-zerg/vismem/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Sessions           []model.SessionAggregate
	WindowSessionIDs   []string
	StimulusAggsAll    []model.StimulusAggregate
	StimulusAggsWindow []model.StimulusAggregate
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}

	allIDs := sessionIDs(sessions)
	windowIDs := lastSessionIDs(sessions, cfg.CurveWindow)
	aggsAll, err := st.ListStimulusAggregates(ctx, allIDs)
	if err != nil {
		return Report{}, err
	}
	aggsWindow, err := st.ListStimulusAggregates(ctx, windowIDs)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Sessions:           sessions,
		WindowSessionIDs:   windowIDs,
		StimulusAggsAll:    aggsAll,
		StimulusAggsWindow: aggsWindow,
	}, nil
}

func sessionIDs(sessions []model.SessionAggregate) []string {
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.SessionID
	}
	return ids
}

func lastSessionIDs(sessions []model.SessionAggregate, window int) []string {
	if window <= 0 || len(sessions) <= window {
		return sessionIDs(sessions)
	}
	return sessionIDs(sessions[len(sessions)-window:])
}
