// Package region turns areas of interest into the tiles that cover them.
//
// # Regions
//
// A Region is either a set of polygons drawn on a map or the whole world:
//
//	r := region.Region{Polygons: []region.Polygon{{
//		{Lat: 14, Lng: 14}, {Lat: 14, Lng: 16}, {Lat: 16, Lng: 16},
//	}}}
//
// Polygons can be read from a file of [lat, lng] rings or from GeoJSON:
//
//	polys, err := region.LoadPolygons("area.geojson")
//
// # Planning
//
// The Planner unions the polygons with GEOS and keeps only the tiles whose
// rectangle truly intersects the union:
//
//	tiles, err := region.NewPlanner().Plan(r, 0, 12)
//
// World regions ignore the zoom range and cover zoom 0 through
// tile.WorldMaxZoom. Zoom ranges are validated with ValidateZoom and never
// clamped.
package region
