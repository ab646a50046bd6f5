package model

import "time"

// PresenceStatus is the outcome of a batch presence lookup
type PresenceStatus string

const (
	PresenceOK           PresenceStatus = "ok"
	PresenceNoData       PresenceStatus = "no-data"
	PresenceAuthError    PresenceStatus = "auth-error"
	PresenceNetworkError PresenceStatus = "network-error"
	PresenceSkipped      PresenceStatus = "skipped"
)

// PresenceSummary is the result of the secondary historical lookup
type PresenceSummary struct {
	Status      PresenceStatus `json:"status"`
	Count       int            `json:"count"`
	WindowHours int            `json:"window_hours"`
	Error       string         `json:"error,omitempty"`
}

// Present returns true if the lookup succeeded and saw at least one vessel
func (s PresenceSummary) Present() bool {
	return s.Status == PresenceOK && s.Count > 0
}

// CollectorState is a state of the live collection state machine
type CollectorState string

const (
	StateIdle       CollectorState = "idle"
	StateConnecting CollectorState = "connecting"
	StateSubscribed CollectorState = "subscribed"
	StateCollecting CollectorState = "collecting"
	StateClosed     CollectorState = "closed"
	StateFailed     CollectorState = "failed"
)

// CollectorStats counts what happened to inbound messages during a run
type CollectorStats struct {
	Received    int64 `json:"received"`
	Accepted    int64 `json:"accepted"`
	OutOfRange  int64 `json:"out_of_range"`
	NonPosition int64 `json:"non_position"`
	Malformed   int64 `json:"malformed"`
	Reconnects  int64 `json:"reconnects"`
}

// ProximityReport is the merged result of one run
type ProximityReport struct {
	Reference   ReferencePoint  `json:"reference"`
	RadiusNM    float64         `json:"radius_nm"`
	Duration    time.Duration   `json:"duration"`
	Vessels     []VesselRecord  `json:"vessels"`
	Presence    PresenceSummary `json:"presence"`
	LiveState   CollectorState  `json:"live_state"`
	LiveError   string          `json:"live_error,omitempty"`
	Stats       CollectorStats  `json:"stats"`
	GeneratedAt time.Time       `json:"generated_at"`
}
