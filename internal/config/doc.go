// Package config provides configuration management for tiledl.
//
// This package handles:
//   - Loading and saving settings from JSON files
//   - Default configuration values and TILEDL_* environment overrides
//   - The registry of tile styles read from map_sources.json
//   - Conversion to download.Options for the download package
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Caches tiles under ./tile-cache
//	// Writes archives to ./downloads
//	// 5 workers, batches of 10, 3 attempts per tile
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/config.json")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//	if err := settings.LoadFromEnv(); err != nil {
//	    // TILEDL_CONCURRENCY=abc and friends
//	}
//
// # Saving Settings
//
//	settings.CacheDir = "/var/cache/tiles"
//	err := settings.Save("/path/to/config.json")
//
// # Styles
//
//	styles, err := config.LoadStyles(settings.StylesFile)
//	style, err := styles.Lookup("OpenStreetMap")
//
// Style names must map to distinct cache directories; LoadStyles rejects
// files where two names sanitize to the same directory.
package config
