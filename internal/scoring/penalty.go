package scoring

import (
	"hash/fnv"
	"math"

	"geoquiz-service/internal/domain"
)

// DefaultFallbackDistance is the penalty used when nobody answered a question (20,000 km).
const DefaultFallbackDistance = 20_000_000.0

// PenaltyDistance is twice the worst distance among the given answers,
// or fallback when there are none or every answer hit the target.
func PenaltyDistance(answers []domain.GivenAnswer, fallback float64) float64 {
	worst := 0.0
	for _, a := range answers {
		if a.Distance > worst {
			worst = a.Distance
		}
	}
	if worst == 0 {
		return fallback
	}
	return 2 * worst
}

// Bearing derives a stable bearing in [0, 360) from the given keys.
func Bearing(keys ...string) float64 {
	h := fnv.New64a()
	for _, k := range keys {
		_, _ = h.Write([]byte(k))
		_, _ = h.Write([]byte{0})
	}
	return float64(h.Sum64()%360_000) / 1000
}

// Project moves distance meters from start along bearing (degrees from north)
// and clamps the result to valid latitude/longitude bounds.
func Project(start domain.Coordinate, distance, bearing float64) domain.Coordinate {
	delta := distance / EarthRadius
	theta := toRad(bearing)
	lat1, lng1 := toRad(start.Lat), toRad(start.Lng)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) + math.Cos(lat1)*math.Sin(delta)*math.Cos(theta))
	lng2 := lng1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2),
	)

	return Clamp(domain.Coordinate{Lat: toDeg(lat2), Lng: wrapLng(toDeg(lng2))})
}

// Clamp forces a coordinate into [-90, 90] x [-180, 180].
func Clamp(c domain.Coordinate) domain.Coordinate {
	c.Lat = math.Max(-90, math.Min(90, c.Lat))
	c.Lng = math.Max(-180, math.Min(180, c.Lng))
	return c
}
