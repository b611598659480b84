// Package tile provides slippy-map tile addressing in Web Mercator.
//
// This package contains:
//   - The Tile value type and its geographic extent
//   - Point and bound to tile conversion, clamped to the projection
//   - The whole-world tile set used for basemaps
//   - The download order of a tile list
//
// # Addressing
//
//	t, err := tile.New(3, 4, 2)
//	box := t.BBox() // west, south, east, north in degrees
//
// Tiles outside the projection never appear: At and Range clamp latitudes
// to ±MaxLat and longitudes to ±180.
//
// # Ordering
//
// Sort orders tiles by zoom ascending, column descending and row ascending:
//
//	tiles := tile.Range(bound, 5)
//	tile.Sort(tiles)
package tile
