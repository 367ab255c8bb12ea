// Package scoring holds the pure geometry and ranking functions behind answer scoring.
package scoring

import (
	"math"

	"geoquiz-service/internal/domain"
)

// EarthRadius is the mean Earth radius in meters.
const EarthRadius = 6371008.8

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
func toDeg(rad float64) float64 { return rad * 180 / math.Pi }

// Haversine returns the great-circle distance between two coordinates in meters.
func Haversine(a, b domain.Coordinate) float64 {
	lat1, lat2 := toRad(a.Lat), toRad(b.Lat)
	dLat := lat2 - lat1
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadius * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Distance returns how far c is from the ground truth in meters.
// A coordinate inside a polygon is at distance zero.
func Distance(c domain.Coordinate, truth domain.Geometry) float64 {
	switch truth.Type {
	case domain.GeometryPolygon:
		ring := openRing(truth.Coordinates)
		if len(ring) < 3 {
			return math.Inf(1)
		}
		if contains(ring, c) {
			return 0
		}
		best := math.Inf(1)
		for i := range ring {
			d := distanceToSegment(c, ring[i], ring[(i+1)%len(ring)])
			if d < best {
				best = d
			}
		}
		return best
	default:
		if len(truth.Coordinates) == 0 {
			return math.Inf(1)
		}
		return Haversine(c, truth.Coordinates[0])
	}
}

// Anchor is the reference point of a geometry: the point itself, or the vertex centroid of a polygon.
func Anchor(g domain.Geometry) domain.Coordinate {
	if g.Type != domain.GeometryPolygon {
		if len(g.Coordinates) == 0 {
			return domain.Coordinate{}
		}
		return g.Coordinates[0]
	}
	ring := openRing(g.Coordinates)
	var lat, lng float64
	for _, c := range ring {
		lat += c.Lat
		lng += c.Lng
	}
	n := float64(len(ring))
	return domain.Coordinate{Lat: lat / n, Lng: lng / n}
}

// openRing drops the closing vertex if the ring repeats its first point.
func openRing(ring []domain.Coordinate) []domain.Coordinate {
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		return ring[:len(ring)-1]
	}
	return ring
}

// contains is an even-odd ray cast in the lat/lng plane.
func contains(ring []domain.Coordinate, c domain.Coordinate) bool {
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Lat > c.Lat) != (b.Lat > c.Lat) {
			lng := (b.Lng-a.Lng)*(c.Lat-a.Lat)/(b.Lat-a.Lat) + a.Lng
			if c.Lng < lng {
				inside = !inside
			}
		}
	}
	return inside
}

// distanceToSegment projects the segment onto a local equirectangular plane centred on c,
// finds the closest point there and measures the great-circle distance to it.
func distanceToSegment(c, a, b domain.Coordinate) float64 {
	k := math.Cos(toRad(c.Lat))
	ax, ay := wrapLng(a.Lng-c.Lng)*k, a.Lat-c.Lat
	bx, by := wrapLng(b.Lng-c.Lng)*k, b.Lat-c.Lat

	dx, dy := bx-ax, by-ay
	t := 0.0
	if l2 := dx*dx + dy*dy; l2 > 0 {
		t = -(ax*dx + ay*dy) / l2
		t = math.Max(0, math.Min(1, t))
	}
	closest := domain.Coordinate{Lat: a.Lat + t*(b.Lat-a.Lat)}
	closest.Lng = a.Lng + t*wrapLng(b.Lng-a.Lng)
	closest.Lng = wrapLng(closest.Lng)
	return Haversine(c, closest)
}

// wrapLng normalises a longitude (or longitude delta) into [-180, 180].
func wrapLng(lng float64) float64 {
	lng = math.Mod(lng+180, 360)
	if lng < 0 {
		lng += 360
	}
	return lng - 180
}
