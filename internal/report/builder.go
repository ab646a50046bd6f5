package report

import (
	"time"

	"vessel-proximity/internal/model"
)

// LiveOutcome describes how the live collection window ended
type LiveOutcome struct {
	State model.CollectorState
	Err   error
	Stats model.CollectorStats
}

// Build merges the live snapshot and the presence summary into a report.
// The snapshot is copied and must already be ordered by distance.
func Build(ref model.ReferencePoint, radiusNM float64, duration time.Duration, snapshot []model.VesselRecord, presence model.PresenceSummary, live LiveOutcome) *model.ProximityReport {
	vessels := make([]model.VesselRecord, len(snapshot))
	copy(vessels, snapshot)

	r := &model.ProximityReport{
		Reference:   ref,
		RadiusNM:    radiusNM,
		Duration:    duration,
		Vessels:     vessels,
		Presence:    presence,
		LiveState:   live.State,
		Stats:       live.Stats,
		GeneratedAt: time.Now().UTC(),
	}
	if live.Err != nil {
		r.LiveError = live.Err.Error()
	}
	return r
}
