package model

import (
	"fmt"
	"math"
	"time"
)

// ReferencePoint is the position vessels are measured against
type ReferencePoint struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Validate reports whether the point lies within WGS84 coordinate ranges
func (p ReferencePoint) Validate() error {
	if math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("latitude %v must be between -90 and 90", p.Latitude)
	}
	if math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("longitude %v must be between -180 and 180", p.Longitude)
	}
	return nil
}

// BoundingBox is a coarse rectangular area. A box with MinLon > MaxLon
// crosses the antimeridian.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Wraps returns true if the box crosses the antimeridian
func (b BoundingBox) Wraps() bool {
	return b.MinLon > b.MaxLon
}

// Contains checks if a point is within the bounding box
func (b BoundingBox) Contains(lat, lon float64) bool {
	if lat < b.MinLat || lat > b.MaxLat {
		return false
	}
	if b.Wraps() {
		return lon >= b.MinLon || lon <= b.MaxLon
	}
	return lon >= b.MinLon && lon <= b.MaxLon
}

// Split returns the box as one or two boxes that do not cross the antimeridian
func (b BoundingBox) Split() []BoundingBox {
	if !b.Wraps() {
		return []BoundingBox{b}
	}
	return []BoundingBox{
		{MinLat: b.MinLat, MinLon: b.MinLon, MaxLat: b.MaxLat, MaxLon: 180},
		{MinLat: b.MinLat, MinLon: -180, MaxLat: b.MaxLat, MaxLon: b.MaxLon},
	}
}

// VesselPosition is a single normalized AIS position report.
// Nil pointers and an empty Name mean the value was not reported.
type VesselPosition struct {
	MMSI        int64     `json:"mmsi"`
	Name        string    `json:"name,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Heading     *float64  `json:"heading,omitempty"`
	Course      *float64  `json:"course,omitempty"`
	Speed       *float64  `json:"speed,omitempty"`
	MessageType string    `json:"message_type,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// VesselRecord is the latest accepted position of a vessel and its
// distance from the reference point
type VesselRecord struct {
	Position   VesselPosition `json:"position"`
	DistanceNM float64        `json:"distance_nm"`
}
