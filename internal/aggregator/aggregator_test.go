package aggregator

import (
	"testing"
	"time"

	"vessel-proximity/internal/model"
)

var ref = model.ReferencePoint{Latitude: 25.0, Longitude: -80.0}

func position(mmsi int64, lat, lon float64, ts time.Time) model.VesselPosition {
	return model.VesselPosition{MMSI: mmsi, Latitude: lat, Longitude: lon, Timestamp: ts}
}

func TestUpsertKeepsLatest(t *testing.T) {
	agg := New(ref)
	t1 := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	if !agg.Upsert(position(123456789, 25.1, -80.1, t1)) {
		t.Fatal("expected first report to be stored")
	}
	if !agg.Upsert(position(123456789, 25.2, -80.2, t2)) {
		t.Fatal("expected newer report to replace the stored one")
	}

	snap := agg.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(snap))
	}
	got := snap[0].Position
	if got.MMSI != 123456789 || got.Latitude != 25.2 || got.Longitude != -80.2 || !got.Timestamp.Equal(t2) {
		t.Fatalf("expected T2 coordinates, got %+v", got)
	}
}

func TestUpsertOlderIsNoop(t *testing.T) {
	agg := New(ref)
	t1 := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	agg.Upsert(position(1, 25.2, -80.2, t2))
	if agg.Upsert(position(1, 25.1, -80.1, t1)) {
		t.Fatal("expected older report to be rejected")
	}

	rec, ok := agg.Get(1)
	if !ok || rec.Position.Latitude != 25.2 {
		t.Fatalf("expected newer record to remain, got %+v", rec)
	}
}

func TestUpsertEqualTimestampLaterArrivalWins(t *testing.T) {
	agg := New(ref)
	ts := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)

	agg.Upsert(position(1, 25.1, -80.1, ts))
	if !agg.Upsert(position(1, 25.3, -80.3, ts)) {
		t.Fatal("expected equal timestamp to replace")
	}
	rec, _ := agg.Get(1)
	if rec.Position.Latitude != 25.3 {
		t.Fatalf("expected later arrival to win, got %+v", rec.Position)
	}
}

func TestUpsertProgressivelyNewer(t *testing.T) {
	agg := New(ref)
	base := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 100; i++ {
		agg.Upsert(position(7, 25+float64(i)*0.001, -80, base.Add(time.Duration(i)*time.Second)))
	}
	if agg.Len() != 1 {
		t.Fatalf("expected a single record, got %d", agg.Len())
	}
	rec, _ := agg.Get(7)
	if !rec.Position.Timestamp.Equal(base.Add(99 * time.Second)) {
		t.Fatalf("expected most recent timestamp, got %v", rec.Position.Timestamp)
	}
}

func TestSnapshotOrdering(t *testing.T) {
	agg := New(ref)
	ts := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)

	agg.Upsert(position(30, 25.3, -80.0, ts))
	agg.Upsert(position(20, 25.1, -80.0, ts))
	// same point as MMSI 20, tie broken by MMSI
	agg.Upsert(position(10, 25.1, -80.0, ts))
	agg.Upsert(position(40, 25.0, -80.0, ts))

	snap := agg.Snapshot()
	wantOrder := []int64{40, 10, 20, 30}
	if len(snap) != len(wantOrder) {
		t.Fatalf("expected %d records, got %d", len(wantOrder), len(snap))
	}
	for i, mmsi := range wantOrder {
		if snap[i].Position.MMSI != mmsi {
			t.Fatalf("position %d: expected MMSI %d, got %d", i, mmsi, snap[i].Position.MMSI)
		}
	}
	for i := 1; i < len(snap); i++ {
		if snap[i].DistanceNM < snap[i-1].DistanceNM {
			t.Fatalf("snapshot not ordered by distance at %d", i)
		}
	}
	if snap[0].DistanceNM != 0 {
		t.Fatalf("expected vessel at reference to have zero distance, got %v", snap[0].DistanceNM)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	agg := New(ref)
	agg.Upsert(position(1, 25.1, -80.1, time.Now()))

	snap := agg.Snapshot()
	snap[0].Position.Name = "CHANGED"

	rec, _ := agg.Get(1)
	if rec.Position.Name == "CHANGED" {
		t.Fatal("snapshot must not alias aggregator state")
	}
}
