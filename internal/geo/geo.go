package geo

import (
	"math"

	"vessel-proximity/internal/model"
)

const (
	// EarthRadiusMeters is the mean Earth radius used for great-circle distances
	EarthRadiusMeters = 6371000.0
	// MetersToNM converts metres to nautical miles
	MetersToNM = 0.000539957

	// bounding boxes are widened by this fraction of the radius plus a fixed angle
	marginFraction = 0.05
	marginDegrees  = 0.01
)

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Distance returns the haversine distance between two points in nautical miles
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1, phi2 := radians(lat1), radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lon2 - lon1)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c * MetersToNM
}

// DistanceFrom returns the distance between the reference point and a position
func DistanceFrom(ref model.ReferencePoint, pos model.VesselPosition) float64 {
	return Distance(ref.Latitude, ref.Longitude, pos.Latitude, pos.Longitude)
}

// Bounds returns a bounding box containing every point within radiusNM of center.
// Spans crossing the antimeridian wrap instead of being cut, and a cap that
// reaches a pole covers every longitude.
func Bounds(center model.ReferencePoint, radiusNM float64) model.BoundingBox {
	angle := degrees(radiusNM / (EarthRadiusMeters * MetersToNM))
	angle = angle*(1+marginFraction) + marginDegrees

	box := model.BoundingBox{
		MinLat: math.Max(-90, center.Latitude-angle),
		MaxLat: math.Min(90, center.Latitude+angle),
		MinLon: -180,
		MaxLon: 180,
	}

	// The cap touches a pole, every meridian passes through it
	if center.Latitude+angle >= 90 || center.Latitude-angle <= -90 || angle >= 90 {
		return box
	}

	ratio := math.Sin(radians(angle)) / math.Cos(radians(center.Latitude))
	if ratio >= 1 {
		return box
	}
	dLon := degrees(math.Asin(ratio))
	if dLon >= 180 {
		return box
	}

	box.MinLon = center.Longitude - dLon
	box.MaxLon = center.Longitude + dLon
	if box.MinLon < -180 {
		box.MinLon += 360
	}
	if box.MaxLon > 180 {
		box.MaxLon -= 360
	}
	return box
}
