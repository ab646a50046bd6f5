package geo

import "vessel-proximity/internal/model"

// Include reports whether pos lies within radiusNM of ref. This is the
// authoritative inclusion test; bounding boxes only narrow subscriptions.
func Include(ref model.ReferencePoint, radiusNM float64, pos model.VesselPosition) bool {
	return DistanceFrom(ref, pos) <= radiusNM
}
