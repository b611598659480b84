package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	ioutils "github.com/handiism/tiledl/internal/io"
	"github.com/handiism/tiledl/internal/tile"
)

// TileExt is the file extension of every cached tile, whatever the upstream
// image format.
const TileExt = ".png"

// ErrNotCached is returned when a style has no cache directory.
var ErrNotCached = errors.New("cache: style not cached")

var (
	whitespace   = regexp.MustCompile(`\s+`)
	invalidChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
)

// SanitizeStyleName converts a style name into a directory name.
//
// Whitespace runs become a single hyphen, then every character other than
// ASCII letters, digits, hyphen and underscore is removed:
//
//	SanitizeStyleName("OpenStreetMap Standard") // "OpenStreetMap-Standard"
//	SanitizeStyleName("Esri (World) Imagery")   // "Esri-World-Imagery"
//
// Distinct names may map to the same directory; the style registry rejects
// such collisions when it loads.
func SanitizeStyleName(name string) string {
	name = whitespace.ReplaceAllString(name, "-")
	return invalidChars.ReplaceAllString(name, "")
}

// Store maps (style, tile) keys to files under a root directory:
//
//	<root>/<sanitized style>/<z>/<x>/<y>.png
//
// The presence of a file is the only record that a tile was downloaded;
// there is no index or manifest. Writes go through a temporary file and a
// rename, so a present file is always complete.
type Store struct {
	root string
}

// NewStore returns a Store rooted at dir. The directory is created lazily on
// the first write.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// StyleDir returns the directory holding every tile of style.
func (s *Store) StyleDir(style string) string {
	return filepath.Join(s.root, SanitizeStyleName(style))
}

// Path returns the location of a tile. The file may not exist.
func (s *Store) Path(style string, t tile.Tile) string {
	return filepath.Join(s.StyleDir(style), strconv.Itoa(t.Z), strconv.Itoa(t.X), strconv.Itoa(t.Y)+TileExt)
}

// Exists reports whether the tile is cached.
func (s *Store) Exists(style string, t tile.Tile) bool {
	return ioutils.FileExists(s.Path(style, t))
}

// Read returns the cached bytes of a tile.
func (s *Store) Read(style string, t tile.Tile) ([]byte, error) {
	return os.ReadFile(s.Path(style, t))
}

// Write stores data for a tile and returns its path.
//
// Missing directory levels are created; concurrent writes of different tiles
// of the same style are safe. Concurrent writes of the same tile are not
// coordinated: the last rename wins.
func (s *Store) Write(style string, t tile.Tile, data []byte) (string, error) {
	path := s.Path(style, t)
	if err := ioutils.WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("cache tile %s: %w", t, err)
	}
	return path, nil
}

// List returns every cached tile of style, sorted by zoom, column and row.
// Entries whose names are not numeric are ignored. A style without a cache
// directory yields an empty list.
func (s *Store) List(style string) ([]tile.Tile, error) {
	styleDir := s.StyleDir(style)
	tiles := []tile.Tile{}

	zDirs, err := os.ReadDir(styleDir)
	if err != nil {
		if os.IsNotExist(err) {
			return tiles, nil
		}
		return nil, err
	}

	for _, zEntry := range zDirs {
		z, err := strconv.Atoi(zEntry.Name())
		if err != nil || !zEntry.IsDir() {
			continue
		}
		xDirs, err := os.ReadDir(filepath.Join(styleDir, zEntry.Name()))
		if err != nil {
			return nil, err
		}
		for _, xEntry := range xDirs {
			x, err := strconv.Atoi(xEntry.Name())
			if err != nil || !xEntry.IsDir() {
				continue
			}
			files, err := os.ReadDir(filepath.Join(styleDir, zEntry.Name(), xEntry.Name()))
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				name := f.Name()
				if f.IsDir() || !strings.HasSuffix(name, TileExt) {
					continue
				}
				y, err := strconv.Atoi(strings.TrimSuffix(name, TileExt))
				if err != nil {
					continue
				}
				tiles = append(tiles, tile.Tile{Z: z, X: x, Y: y})
			}
		}
	}

	sort.Slice(tiles, func(i, j int) bool {
		a, b := tiles[i], tiles[j]
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})
	return tiles, nil
}

// Purge deletes the whole cache of a style.
func (s *Store) Purge(style string) error {
	dir := s.StyleDir(style)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotCached, style)
		}
		return err
	}
	return os.RemoveAll(dir)
}
