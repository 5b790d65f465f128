// Package geo computes great-circle distances between coordinates.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula
const EarthRadiusKm = 6371.0

// ErrInvalidCoordinate is returned when a coordinate is NaN or infinite
var ErrInvalidCoordinate = errors.New("geo: invalid coordinate")

// DistanceKm returns the haversine distance in kilometers between (lat1, lon1) and (lat2, lon2),
// all given in degrees
func DistanceKm(lat1, lon1, lat2, lon2 float64) (float64, error) {
	for _, v := range [...]float64{lat1, lon1, lat2, lon2} {
		if !finite(v) {
			return 0, fmt.Errorf("%w: (%v, %v) -> (%v, %v)", ErrInvalidCoordinate, lat1, lon1, lat2, lon2)
		}
	}

	dLat := degreesToRadians(lat2 - lat1)
	dLon := degreesToRadians(lon2 - lon1)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(degreesToRadians(lat1))*math.Cos(degreesToRadians(lat2))*sinLon*sinLon

	// rounding can push a just outside [0, 1] near identical or antipodal points
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c, nil
}

// PointDistanceKm is DistanceKm for orb points (lon, lat)
func PointDistanceKm(p, q orb.Point) (float64, error) {
	return DistanceKm(p.Lat(), p.Lon(), q.Lat(), q.Lon())
}

// Within reports whether q lies no further than radiusKm from p
func Within(p, q orb.Point, radiusKm float64) (bool, error) {
	d, err := PointDistanceKm(p, q)
	if err != nil {
		return false, err
	}
	return d <= radiusKm, nil
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// ValidatePoint returns ErrInvalidCoordinate if either component of p is NaN or infinite
func ValidatePoint(p orb.Point) error {
	if !finite(p.Lat()) || !finite(p.Lon()) {
		return fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinate, p.Lat(), p.Lon())
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
