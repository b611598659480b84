package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/handiism/tiledl/internal/cache"
	"github.com/handiism/tiledl/internal/tile"
)

// Subdomains are the CDN host aliases substituted for {s}.
var Subdomains = []string{"a", "b", "c"}

// ErrInvalidTemplate is returned for URL templates missing a placeholder.
var ErrInvalidTemplate = errors.New("model: invalid URL template")

// IntSource picks a uniformly random index in [0, n).
//
// *rand.Rand from math/rand/v2 satisfies IntSource; tests pass a fixed
// source instead of mocking randomness.
type IntSource interface {
	IntN(n int) int
}

// Style is a named tile source.
//
// The URL template may use these placeholders:
//   - {s} - CDN subdomain, picked at random from Subdomains
//   - {z} - Zoom level
//   - {x} - Tile column
//   - {y} - Tile row
//
// Example:
//
//	style := Style{
//	    Name:        "OpenStreetMap",
//	    URLTemplate: "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
//	}
//	url := style.TileURL(tile.Tile{Z: 3, X: 4, Y: 2}, rand.New(rand.NewPCG(1, 2)))
//	// url = "https://b.tile.openstreetmap.org/3/4/2.png"
type Style struct {
	// Name is the human-readable style name shown to users.
	Name string `json:"name"`

	// URLTemplate is the tile URL with {s}, {z}, {x}, {y} placeholders.
	URLTemplate string `json:"url"`
}

// CacheName returns the directory name of the style in the tile cache.
func (s Style) CacheName() string {
	return cache.SanitizeStyleName(s.Name)
}

// UsesSubdomain reports whether the template has an {s} placeholder.
func (s Style) UsesSubdomain() bool {
	return strings.Contains(s.URLTemplate, "{s}")
}

// Validate checks the style has a name and a usable template.
func (s Style) Validate() error {
	if s.CacheName() == "" {
		return fmt.Errorf("%w: style name %q has no usable characters", ErrInvalidTemplate, s.Name)
	}
	for _, p := range []string{"{z}", "{x}", "{y}"} {
		if !strings.Contains(s.URLTemplate, p) {
			return fmt.Errorf("%w: %q lacks %s", ErrInvalidTemplate, s.URLTemplate, p)
		}
	}
	return nil
}

// TileURL expands the template for a tile. rnd is only consulted when the
// template contains {s}.
func (s Style) TileURL(t tile.Tile, rnd IntSource) string {
	subdomain := ""
	if s.UsesSubdomain() {
		subdomain = PickSubdomain(rnd, Subdomains)
	}
	r := strings.NewReplacer(
		"{s}", subdomain,
		"{z}", strconv.Itoa(t.Z),
		"{x}", strconv.Itoa(t.X),
		"{y}", strconv.Itoa(t.Y),
	)
	return r.Replace(s.URLTemplate)
}

// PickSubdomain returns one entry of alphabet chosen by rnd, or "" for an
// empty alphabet.
func PickSubdomain(rnd IntSource, alphabet []string) string {
	if len(alphabet) == 0 {
		return ""
	}
	return alphabet[rnd.IntN(len(alphabet))]
}
