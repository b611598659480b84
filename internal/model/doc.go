// Package model defines the job-level data structures shared by the
// front ends and the download engine.
//
// # Style
//
// Style is a named tile source with a URL template:
//
//	style := model.Style{Name: "OpenStreetMap", URLTemplate: "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"}
//	fmt.Println(style.CacheName())   // Directory name inside the tile cache
//	fmt.Println(style.TileURL(t, r)) // Request URL for one tile
//
// # Request
//
// Request is the input of one download job: a region (polygons or the whole
// world), a zoom range, a style name and the 8-bit color option.
//
//	req := model.Request{
//	    Region:  region.Region{Polygons: polys},
//	    MinZoom: 10,
//	    MaxZoom: 14,
//	    Style:   "OpenStreetMap",
//	}
//	if err := req.Validate(); err != nil {
//	    // Reject before any tile is planned
//	}
//
// Available placeholders: {s}, {z}, {x}, {y}
package model
