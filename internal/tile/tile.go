package tile

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

const (
	// MaxZoom is the deepest zoom level accepted for a download.
	MaxZoom = 19

	// WorldMaxZoom is the deepest zoom level of the whole-world basemap.
	WorldMaxZoom = 7

	// MaxLat is the northern limit of the Web Mercator projection.
	MaxLat = 85.0511287798066
)

// edgeEpsilon keeps a bound ending exactly on a tile edge from spilling into
// the neighbouring column or row.
const edgeEpsilon = 1e-9

// Tile is a slippy-map tile address.
//
// Tiles are plain values: two tiles are equal iff Z, X and Y match, so they
// can be compared with == and used as map keys.
type Tile struct {
	Z int
	X int
	Y int
}

// BBox is a geographic bounding box in degrees.
type BBox struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// New returns the tile at z/x/y, validating the coordinates.
//
// The zoom must be in [0, MaxZoom] and both x and y in [0, 2^z).
func New(z, x, y int) (Tile, error) {
	if z < 0 || z > MaxZoom {
		return Tile{}, fmt.Errorf("zoom %d out of range [0, %d]", z, MaxZoom)
	}
	n := 1 << z
	if x < 0 || x >= n {
		return Tile{}, fmt.Errorf("x %d out of range [0, %d] for zoom %d", x, n-1, z)
	}
	if y < 0 || y >= n {
		return Tile{}, fmt.Errorf("y %d out of range [0, %d] for zoom %d", y, n-1, z)
	}
	return Tile{Z: z, X: x, Y: y}, nil
}

// String returns the tile as "z/x/y".
func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// BBox returns the geographic extent of the tile.
//
// The east edge of tile x and the west edge of tile x+1 are projected from
// the same tile coordinate, so neighbouring tiles share bit-identical
// boundaries.
func (t Tile) BBox() BBox {
	b := maptile.New(uint32(t.X), uint32(t.Y), maptile.Zoom(t.Z)).Bound()
	return BBox{
		West:  b.Min.Lon(),
		South: b.Min.Lat(),
		East:  b.Max.Lon(),
		North: b.Max.Lat(),
	}
}

// Ring returns the closed ring of the box corners in lng/lat order.
func (b BBox) Ring() orb.Ring {
	return orb.Ring{
		{b.West, b.South},
		{b.East, b.South},
		{b.East, b.North},
		{b.West, b.North},
		{b.West, b.South},
	}
}

// At returns the tile containing the lng/lat point at zoom z. Points outside
// the projection are clamped onto the edge tiles.
func At(lng, lat float64, z int) Tile {
	n := float64(int(1) << z)
	lat = clampFloat(lat, -MaxLat, MaxLat)

	x := math.Floor((lng + 180.0) / 360.0 * n)
	latRad := lat * math.Pi / 180.0
	y := math.Floor((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n)

	maxIdx := int(n) - 1
	return Tile{
		Z: z,
		X: clampInt(int(x), 0, maxIdx),
		Y: clampInt(int(y), 0, maxIdx),
	}
}

// Range returns every tile at zoom z whose extent overlaps the bound.
// Tiles are returned in column-major order; callers that need the download
// order should use Sort.
func Range(b orb.Bound, z int) []Tile {
	west := clampFloat(b.Min[0], -180.0, 180.0)
	east := clampFloat(b.Max[0], -180.0, 180.0)
	south := clampFloat(b.Min[1], -MaxLat, MaxLat)
	north := clampFloat(b.Max[1], -MaxLat, MaxLat)
	if west > east || south > north {
		return nil
	}

	ul := At(west, north, z)
	lr := At(math.Max(west, east-edgeEpsilon), math.Min(north, south+edgeEpsilon), z)

	tiles := make([]Tile, 0, (lr.X-ul.X+1)*(lr.Y-ul.Y+1))
	for x := ul.X; x <= lr.X; x++ {
		for y := ul.Y; y <= lr.Y; y++ {
			tiles = append(tiles, Tile{Z: z, X: x, Y: y})
		}
	}
	return tiles
}

// World returns every tile for zoom levels 0 through maxZ.
func World(maxZ int) []Tile {
	var tiles []Tile
	for z := 0; z <= maxZ; z++ {
		n := 1 << z
		for x := 0; x < n; x++ {
			for y := 0; y < n; y++ {
				tiles = append(tiles, Tile{Z: z, X: x, Y: y})
			}
		}
	}
	return tiles
}

// Sort orders tiles by zoom ascending, column descending, row ascending.
// Coarse tiles are fetched first.
func Sort(tiles []Tile) {
	sort.Slice(tiles, func(i, j int) bool {
		a, b := tiles[i], tiles[j]
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.X != b.X {
			return a.X > b.X
		}
		return a.Y < b.Y
	})
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
