package model

import (
	"errors"

	"github.com/handiism/tiledl/internal/region"
)

// ErrNoStyle is returned for a request without a style name.
var ErrNoStyle = errors.New("model: no style selected")

// Request describes one download job as submitted by a front end.
type Request struct {
	// Region is the area to download. World mode ignores the zoom range.
	Region region.Region `json:"region"`

	// MinZoom and MaxZoom bound the zoom levels, inclusive.
	MinZoom int `json:"min_zoom"`
	MaxZoom int `json:"max_zoom"`

	// Style is the name of a registered style.
	Style string `json:"style"`

	// ReduceColors re-encodes downloaded tiles as 8-bit palette PNGs.
	ReduceColors bool `json:"convert_to_8bit"`
}

// Validate rejects requests that must never start a job: an empty region,
// an out of range zoom interval or a missing style name.
func (r Request) Validate() error {
	if err := r.Region.Validate(); err != nil {
		return err
	}
	if !r.Region.World {
		if err := region.ValidateZoom(r.MinZoom, r.MaxZoom); err != nil {
			return err
		}
	}
	if r.Style == "" {
		return ErrNoStyle
	}
	return nil
}
