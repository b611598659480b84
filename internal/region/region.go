package region

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/handiism/tiledl/internal/tile"
)

var (
	// ErrEmptyRegion is returned for a region with no polygons and world
	// mode unset.
	ErrEmptyRegion = errors.New("region: no polygons provided")

	// ErrInvalidZoom is returned for a zoom range outside [0, tile.MaxZoom]
	// or with min > max.
	ErrInvalidZoom = errors.New("region: invalid zoom range")

	// ErrGeometry wraps faults raised by the geometry engine.
	ErrGeometry = errors.New("region: geometry error")
)

// LatLng is a vertex in degrees, latitude first as drawn on a map.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Polygon is a ring of vertices. It does not need to be closed.
type Polygon []LatLng

// Region is the area of interest of a download job.
type Region struct {
	Polygons []Polygon `json:"polygons,omitempty"`
	World    bool      `json:"world,omitempty"`
}

// Validate reports whether the region can be planned.
func (r Region) Validate() error {
	if !r.World && len(r.Polygons) == 0 {
		return ErrEmptyRegion
	}
	return nil
}

// ValidateZoom checks 0 <= minZ <= maxZ <= tile.MaxZoom. Out of range values
// are rejected, never clamped.
func ValidateZoom(minZ, maxZ int) error {
	if minZ < 0 || maxZ > tile.MaxZoom || minZ > maxZ {
		return fmt.Errorf("%w: must be 0-%d with min <= max, got %d-%d", ErrInvalidZoom, tile.MaxZoom, minZ, maxZ)
	}
	return nil
}

// Ring returns the polygon in lng/lat order, closed.
func (p Polygon) Ring() orb.Ring {
	ring := make(orb.Ring, 0, len(p)+1)
	for _, v := range p {
		ring = append(ring, orb.Point{v.Lng, v.Lat})
	}
	if len(ring) > 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring
}

// FromPairs builds polygons from raw [lat, lng] pairs, the shape map drawing
// widgets emit.
func FromPairs(pairs [][][2]float64) []Polygon {
	polys := make([]Polygon, 0, len(pairs))
	for _, ring := range pairs {
		p := make(Polygon, 0, len(ring))
		for _, v := range ring {
			p = append(p, LatLng{Lat: v[0], Lng: v[1]})
		}
		polys = append(polys, p)
	}
	return polys
}
