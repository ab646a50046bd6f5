package aggregator

import (
	"sort"
	"sync"

	"vessel-proximity/internal/geo"
	"vessel-proximity/internal/model"
)

// Aggregator keeps the latest accepted report per MMSI.
// A report replaces the stored one unless it is older; equal timestamps
// are resolved in favour of the later arrival.
type Aggregator struct {
	ref     model.ReferencePoint
	records map[int64]model.VesselRecord
	mu      sync.RWMutex
}

// New creates an aggregator measuring distances from ref
func New(ref model.ReferencePoint) *Aggregator {
	return &Aggregator{
		ref:     ref,
		records: make(map[int64]model.VesselRecord),
	}
}

// Upsert stores pos and returns false if an existing record is newer
func (a *Aggregator) Upsert(pos model.VesselPosition) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if existing, ok := a.records[pos.MMSI]; ok && pos.Timestamp.Before(existing.Position.Timestamp) {
		return false
	}

	a.records[pos.MMSI] = model.VesselRecord{
		Position:   pos,
		DistanceNM: geo.DistanceFrom(a.ref, pos),
	}
	return true
}

// Get returns the record stored for mmsi
func (a *Aggregator) Get(mmsi int64) (model.VesselRecord, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	rec, ok := a.records[mmsi]
	return rec, ok
}

// Len returns the number of distinct vessels
func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return len(a.records)
}

// Snapshot returns all records ordered by ascending distance, then MMSI
func (a *Aggregator) Snapshot() []model.VesselRecord {
	a.mu.RLock()
	records := make([]model.VesselRecord, 0, len(a.records))
	for _, rec := range a.records {
		records = append(records, rec)
	}
	a.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		if records[i].DistanceNM != records[j].DistanceNM {
			return records[i].DistanceNM < records[j].DistanceNM
		}
		return records[i].Position.MMSI < records[j].Position.MMSI
	})
	return records
}
