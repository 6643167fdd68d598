package geofence

import (
	"math"

	"github.com/vidyalaya-labs/vidyalaya-api/internal/models"
	appErrors "github.com/vidyalaya-labs/vidyalaya-api/pkg/errors"
)

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000.0

// Match reports the anchor that verified the caller's position.
type Match struct {
	Location       models.InstituteLocation
	DistanceMeters float64
}

// Distance computes the great-circle distance in meters between two
// coordinates using the haversine formula.
func Distance(from, to models.Coordinate) float64 {
	lat1 := from.Latitude * math.Pi / 180
	lat2 := to.Latitude * math.Pi / 180
	dLat := (to.Latitude - from.Latitude) * math.Pi / 180
	dLon := (to.Longitude - from.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Verify scans the registered anchors in registry order and returns the first
// one whose radius contains the coordinate. On failure it reports the nearest
// anchor by name with distance and allowed radius in kilometres. An empty
// registry fails before any distance comparison.
func Verify(coord models.Coordinate, locations []models.InstituteLocation) (*Match, error) {
	if len(locations) == 0 {
		return nil, appErrors.ErrNoLocationsConfigured
	}

	nearestIdx := -1
	nearestDistance := math.MaxFloat64

	for i, loc := range locations {
		dist := Distance(coord, models.Coordinate{Latitude: loc.Latitude, Longitude: loc.Longitude})
		if dist <= float64(loc.RadiusMeters) {
			return &Match{Location: loc, DistanceMeters: dist}, nil
		}
		if dist < nearestDistance {
			nearestDistance = dist
			nearestIdx = i
		}
	}

	nearest := locations[nearestIdx]
	return nil, appErrors.OutsideGeofence(nearest.Name, nearestDistance/1000, float64(nearest.RadiusMeters)/1000)
}
