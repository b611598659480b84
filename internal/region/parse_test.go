package region

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParsePolygons(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantPolys int
		wantFirst LatLng
	}{
		{
			name:      "pairs",
			input:     `[[[14, 14], [14, 16], [16, 16], [16, 14]]]`,
			wantPolys: 1,
			wantFirst: LatLng{Lat: 14, Lng: 14},
		},
		{
			name: "geojson polygon",
			input: `{"type": "Polygon", "coordinates": [
				[[2.3, 48.8], [2.4, 48.8], [2.4, 48.9], [2.3, 48.8]]
			]}`,
			wantPolys: 1,
			wantFirst: LatLng{Lat: 48.8, Lng: 2.3},
		},
		{
			name: "geojson feature collection",
			input: `{"type": "FeatureCollection", "features": [
				{"type": "Feature", "properties": {}, "geometry": {"type": "Polygon", "coordinates": [[[0, 0], [1, 0], [1, 1], [0, 0]]]}},
				{"type": "Feature", "properties": {}, "geometry": {"type": "Point", "coordinates": [5, 5]}},
				{"type": "Feature", "properties": {}, "geometry": {"type": "MultiPolygon", "coordinates": [
					[[[10, 10], [11, 10], [11, 11], [10, 10]]],
					[[[20, 20], [21, 20], [21, 21], [20, 20]]]
				]}}
			]}`,
			wantPolys: 3,
			wantFirst: LatLng{Lat: 0, Lng: 0},
		},
		{
			name:      "geojson feature",
			input:     `{"type": "Feature", "properties": {}, "geometry": {"type": "Polygon", "coordinates": [[[7, 45], [8, 45], [8, 46], [7, 45]]]}}`,
			wantPolys: 1,
			wantFirst: LatLng{Lat: 45, Lng: 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			polys, err := ParsePolygons([]byte(tt.input))
			if err != nil {
				t.Fatalf("ParsePolygons failed: %v", err)
			}
			if len(polys) != tt.wantPolys {
				t.Fatalf("got %d polygons, want %d", len(polys), tt.wantPolys)
			}
			if polys[0][0] != tt.wantFirst {
				t.Errorf("first vertex = %+v, want %+v", polys[0][0], tt.wantFirst)
			}
		})
	}
}

func TestParsePolygons_Errors(t *testing.T) {
	if _, err := ParsePolygons([]byte("  ")); !errors.Is(err, ErrEmptyRegion) {
		t.Errorf("empty input: err = %v, want ErrEmptyRegion", err)
	}
	if _, err := ParsePolygons([]byte("[[[1, 2, 3")); err == nil {
		t.Error("truncated pairs accepted")
	}
	if _, err := ParsePolygons([]byte("{not json")); err == nil {
		t.Error("invalid geojson accepted")
	}
}

func TestLoadPolygons(t *testing.T) {
	path := filepath.Join(t.TempDir(), "area.json")
	if err := os.WriteFile(path, []byte(`[[[14, 14], [14, 16], [16, 16]]]`), 0644); err != nil {
		t.Fatal(err)
	}

	polys, err := LoadPolygons(path)
	if err != nil {
		t.Fatalf("LoadPolygons failed: %v", err)
	}
	if len(polys) != 1 || len(polys[0]) != 3 {
		t.Errorf("LoadPolygons = %v", polys)
	}

	if _, err := LoadPolygons(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadPolygons of missing file succeeded")
	}
}
