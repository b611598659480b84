package region

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LoadPolygons reads polygons from a file. See ParsePolygons for the
// accepted formats.
func LoadPolygons(path string) ([]Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	polys, err := ParsePolygons(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return polys, nil
}

// ParsePolygons accepts either raw rings of [lat, lng] pairs
//
//	[[[14, 14], [14, 16], [16, 16], [16, 14]]]
//
// or a GeoJSON FeatureCollection, Feature or geometry. Only Polygon and
// MultiPolygon geometries contribute, and only their outer rings; holes
// are ignored.
func ParsePolygons(data []byte) ([]Polygon, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyRegion
	}

	if data[0] == '[' {
		var pairs [][][2]float64
		if err := json.Unmarshal(data, &pairs); err != nil {
			return nil, fmt.Errorf("parse polygon pairs: %w", err)
		}
		return FromPairs(pairs), nil
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}

	var polys []Polygon
	switch probe.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("parse geojson: %w", err)
		}
		for _, f := range fc.Features {
			polys = append(polys, fromGeometry(f.Geometry)...)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("parse geojson: %w", err)
		}
		polys = fromGeometry(f.Geometry)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("parse geojson: %w", err)
		}
		polys = fromGeometry(g.Geometry())
	}
	return polys, nil
}

func fromGeometry(g orb.Geometry) []Polygon {
	switch g := g.(type) {
	case orb.Polygon:
		if len(g) == 0 {
			return nil
		}
		return []Polygon{fromRing(g[0])}
	case orb.MultiPolygon:
		var polys []Polygon
		for _, p := range g {
			polys = append(polys, fromGeometry(p)...)
		}
		return polys
	default:
		return nil
	}
}

func fromRing(r orb.Ring) Polygon {
	p := make(Polygon, 0, len(r))
	for _, pt := range r {
		p = append(p, LatLng{Lat: pt.Lat(), Lng: pt.Lon()})
	}
	return p
}
