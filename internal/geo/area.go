package geo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// ParseBound parses a "minLon,minLat,maxLon,maxLat" bounding box, the
// form it takes in configuration and query strings.
func ParseBound(s string) (*orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bounding box needs 4 values, got %d", len(parts))
	}

	values := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bounding box value %q: %v", part, err)
		}
		values[i] = v
	}

	if values[0] > values[2] || values[1] > values[3] {
		return nil, fmt.Errorf("bounding box min must not exceed max")
	}

	bound := orb.Bound{
		Min: orb.Point{values[0], values[1]},
		Max: orb.Point{values[2], values[3]},
	}
	return &bound, nil
}

// Contains reports whether a coordinate pair falls inside the bound.
func Contains(bound orb.Bound, latitude, longitude float64) bool {
	return bound.Contains(orb.Point{longitude, latitude})
}
