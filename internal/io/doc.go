// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - Atomic file writes
//   - Idempotent directory creation
//   - 8-bit palette reduction of tile images
//
// # File Operations
//
//	// Write a tile so it only becomes visible once complete
//	err := ioutils.WriteFileAtomic("/cache/osm/3/4/2.png", data)
//
//	// Ensure directory exists
//	err := ioutils.EnsureDir("/cache/osm/3/4")
//
// # Image Processing
//
// The ImageService reduces tiles to an 8-bit palette:
//
//	svc := ioutils.NewImageService()
//	out, changed, err := svc.ReducePalette(ctx, pngData)
package ioutils
