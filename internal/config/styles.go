package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/handiism/tiledl/internal/cache"
	"github.com/handiism/tiledl/internal/model"
)

var (
	// ErrUnknownStyle is returned when a style name or URL is not registered.
	ErrUnknownStyle = errors.New("config: unknown style")

	// ErrStyleCollision is returned when two style names share a cache
	// directory.
	ErrStyleCollision = errors.New("config: style names collide")
)

// Styles is the registry of tile sources, keyed by display name.
type Styles struct {
	byName map[string]model.Style
	names  []string
}

// LoadStyles reads a map_sources.json file of the form
//
//	{"OpenStreetMap": "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"}
func LoadStyles(path string) (*Styles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read styles: %w", err)
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse styles %s: %w", path, err)
	}
	return NewStyles(raw)
}

// NewStyles builds a registry from name to URL template pairs. Every
// template is validated.
func NewStyles(sources map[string]string) (*Styles, error) {
	s := &Styles{byName: make(map[string]model.Style, len(sources))}
	dirs := make(map[string]string, len(sources))

	for name, url := range sources {
		style := model.Style{Name: name, URLTemplate: url}
		if err := style.Validate(); err != nil {
			return nil, fmt.Errorf("style %q: %w", name, err)
		}

		dir := cache.SanitizeStyleName(name)
		if other, ok := dirs[dir]; ok {
			a, b := min(name, other), max(name, other)
			return nil, fmt.Errorf("%w: %q and %q both map to %q", ErrStyleCollision, a, b, dir)
		}
		dirs[dir] = name

		s.byName[name] = style
		s.names = append(s.names, name)
	}

	slices.Sort(s.names)
	return s, nil
}

// Lookup returns the style registered under name.
func (s *Styles) Lookup(name string) (model.Style, error) {
	style, ok := s.byName[name]
	if !ok {
		return model.Style{}, fmt.Errorf("%w: %q", ErrUnknownStyle, name)
	}
	return style, nil
}

// ByURL returns the style whose template equals url. When several names
// share a template the alphabetically first wins.
func (s *Styles) ByURL(url string) (model.Style, error) {
	for _, name := range s.names {
		if style := s.byName[name]; style.URLTemplate == url {
			return style, nil
		}
	}
	return model.Style{}, fmt.Errorf("%w: no style with URL %q", ErrUnknownStyle, url)
}

// Resolve finds a style by name, falling back to a URL template match.
func (s *Styles) Resolve(ref string) (model.Style, error) {
	if style, ok := s.byName[ref]; ok {
		return style, nil
	}
	if style, err := s.ByURL(ref); err == nil {
		return style, nil
	}
	return model.Style{}, fmt.Errorf("%w: %q", ErrUnknownStyle, ref)
}

// Names returns the registered style names in sorted order.
func (s *Styles) Names() []string {
	return slices.Clone(s.names)
}

// Len returns the number of registered styles.
func (s *Styles) Len() int {
	return len(s.names)
}
