package region

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-geos"

	"github.com/handiism/tiledl/internal/tile"
)

// Planner turns regions into ordered tile lists.
//
// Polygons are merged with a GEOS unary union and every candidate tile is
// tested against the union with a true polygon/rectangle intersection, so
// tiles that only overlap the bounding box of an irregular shape are not
// fetched.
//
// A Planner is safe for concurrent use: each call works in its own GEOS
// context.
type Planner struct{}

// NewPlanner creates a Planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// Plan returns the tiles for a validated region and zoom range. World regions
// ignore the zoom range and cover zoom 0 through tile.WorldMaxZoom.
func (p *Planner) Plan(r Region, minZ, maxZ int) ([]tile.Tile, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.World {
		return p.WorldTiles(), nil
	}
	return p.Tiles(r.Polygons, minZ, maxZ)
}

// WorldTiles returns every tile for zoom levels 0 through tile.WorldMaxZoom,
// without any geometry filtering.
func (p *Planner) WorldTiles() []tile.Tile {
	tiles := tile.World(tile.WorldMaxZoom)
	tile.Sort(tiles)
	return tiles
}

// Tiles returns the tiles intersecting the union of polygons for every zoom in
// [minZ, maxZ], sorted by zoom ascending, column descending, row ascending.
//
// An empty union yields an empty list and no error; treating that as a user
// error is up to the caller.
func (p *Planner) Tiles(polygons []Polygon, minZ, maxZ int) (tiles []tile.Tile, err error) {
	if len(polygons) == 0 {
		return nil, ErrEmptyRegion
	}
	if err := ValidateZoom(minZ, maxZ); err != nil {
		return nil, err
	}

	// go-geos reports GEOS exceptions by panicking.
	defer func() {
		if r := recover(); r != nil {
			tiles = nil
			err = fmt.Errorf("%w: %v", ErrGeometry, r)
		}
	}()

	gctx := geos.NewContext()

	union := unionOf(gctx, polygons)
	if union == nil || union.IsEmpty() {
		return []tile.Tile{}, nil
	}
	prepared := union.Prepare()

	bounds := union.Bounds()
	extent := orb.Bound{
		Min: orb.Point{bounds.MinX, bounds.MinY},
		Max: orb.Point{bounds.MaxX, bounds.MaxY},
	}

	for z := minZ; z <= maxZ; z++ {
		for _, t := range tile.Range(extent, z) {
			if prepared.Intersects(rectangle(gctx, t.BBox())) {
				tiles = append(tiles, t)
			}
		}
	}

	tile.Sort(tiles)
	if tiles == nil {
		tiles = []tile.Tile{}
	}
	return tiles, nil
}

// unionOf repairs every polygon and merges them. Rings with fewer than three
// vertices enclose nothing and are skipped.
func unionOf(gctx *geos.Context, polygons []Polygon) *geos.Geom {
	geoms := make([]*geos.Geom, 0, len(polygons))
	for _, poly := range polygons {
		ring := poly.Ring()
		if len(ring) < 4 {
			continue
		}
		coords := make([][]float64, len(ring))
		for i, pt := range ring {
			coords[i] = []float64{pt[0], pt[1]}
		}
		g := gctx.NewPolygon([][][]float64{coords})
		if !g.IsValid() {
			g = g.MakeValid()
		}
		geoms = append(geoms, g)
	}
	if len(geoms) == 0 {
		return nil
	}
	return gctx.NewCollection(geos.TypeIDGeometryCollection, geoms).UnaryUnion()
}

func rectangle(gctx *geos.Context, b tile.BBox) *geos.Geom {
	ring := b.Ring()
	coords := make([][]float64, len(ring))
	for i, pt := range ring {
		coords[i] = []float64{pt[0], pt[1]}
	}
	return gctx.NewPolygon([][][]float64{coords})
}
