package fetcher

import (
	"encoding/json"
	"fmt"
	"strings"

	"vessel-proximity/internal/model"
	"vessel-proximity/pkg/utils"
)

// Outcome classifies an inbound stream message
type Outcome int

const (
	OutcomePosition Outcome = iota
	OutcomeNotPosition
	OutcomeMalformed
	OutcomeServerError
)

func (o Outcome) String() string {
	switch o {
	case OutcomePosition:
		return "position"
	case OutcomeNotPosition:
		return "not_position"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeServerError:
		return "server_error"
	default:
		return "unknown"
	}
}

// PositionMessageTypes are the AIS message types carrying a vessel position
var PositionMessageTypes = []string{
	"PositionReport",
	"StandardClassBPositionReport",
	"ExtendedClassBPositionReport",
}

// AIS "not available" values
const (
	headingUnavailable = 511
	courseUnavailable  = 360
	speedUnavailable   = 102.3
)

// Result is the outcome of normalizing one message. Position is only set
// for OutcomePosition; Reason explains every other outcome.
type Result struct {
	Outcome  Outcome
	Position model.VesselPosition
	Reason   string
}

func malformed(format string, v ...interface{}) Result {
	return Result{Outcome: OutcomeMalformed, Reason: fmt.Sprintf(format, v...)}
}

func isPositionType(messageType string) bool {
	for _, t := range PositionMessageTypes {
		if t == messageType {
			return true
		}
	}
	return false
}

// Normalize parses a raw aisstream.io frame into a vessel position
func Normalize(raw []byte) Result {
	var env model.AISEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return malformed("invalid json: %v", err)
	}

	if env.Error != nil {
		return Result{Outcome: OutcomeServerError, Reason: *env.Error}
	}

	if env.MessageType == "" {
		return malformed("missing message type")
	}
	if !isPositionType(env.MessageType) {
		return Result{Outcome: OutcomeNotPosition, Reason: env.MessageType}
	}

	payload, ok := env.Message[env.MessageType]
	if !ok || len(payload) == 0 || string(payload) == "null" {
		return malformed("missing %s payload", env.MessageType)
	}

	var report model.AISPositionReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return malformed("invalid %s payload: %v", env.MessageType, err)
	}

	meta := env.MetaData
	if meta == nil {
		meta = env.Metadata
	}
	if meta == nil {
		meta = &model.AISMetaData{}
	}

	// Prefer the payload coordinates, fall back to metadata
	lat, lon := report.Latitude, report.Longitude
	if lat == nil || lon == nil {
		lat, lon = meta.Latitude, meta.Longitude
	}
	if lat == nil || lon == nil {
		return malformed("missing coordinates")
	}
	if *lat < -90 || *lat > 90 || *lon < -180 || *lon > 180 {
		return malformed("coordinates out of range: %v, %v", *lat, *lon)
	}

	mmsi := report.UserID
	if mmsi == nil {
		mmsi = meta.MMSI
	}
	if mmsi == nil || *mmsi <= 0 {
		return malformed("missing MMSI")
	}

	ts, err := utils.ParseAISTimestamp(meta.TimeUTC)
	if err != nil {
		return malformed("invalid timestamp: %v", err)
	}

	pos := model.VesselPosition{
		MMSI:        *mmsi,
		Name:        strings.Trim(meta.ShipName, " @"),
		Latitude:    *lat,
		Longitude:   *lon,
		MessageType: env.MessageType,
		Timestamp:   ts,
	}

	if h := report.TrueHeading; h != nil && *h >= 0 && *h < headingUnavailable && *h < 360 {
		pos.Heading = floatPtr(*h)
	}
	if c := report.Cog; c != nil && *c >= 0 && *c < courseUnavailable {
		pos.Course = floatPtr(*c)
	}
	if s := report.Sog; s != nil && *s >= 0 && *s < speedUnavailable {
		pos.Speed = floatPtr(*s)
	}

	return Result{Outcome: OutcomePosition, Position: pos}
}

// IsAuthError reports whether a server error message rejects the API key
func IsAuthError(message string) bool {
	msg := strings.ToLower(message)
	for _, hint := range []string{"api", "key", "invalid", "auth"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

func floatPtr(v float64) *float64 {
	return &v
}
