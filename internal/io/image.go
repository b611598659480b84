package ioutils

import (
	"bytes"
	"context"
	"image"
	"image/color"
	_ "image/gif"  // GIF decoder registration
	_ "image/jpeg" // JPEG decoder registration
	"image/png"

	"github.com/ericpauley/go-quantize/quantize"
	"golang.org/x/image/draw"
)

// PaletteSize is the number of colors of a reduced tile.
const PaletteSize = 256

// ImageService provides image processing operations for map tiles.
//
// ImageService is used to reduce downloaded tiles to an 8-bit palette PNG,
// which shrinks archives of raster basemaps considerably for devices that
// only need 256 colors.
//
// Example usage:
//
//	svc := NewImageService()
//
//	data, _ := fetchTile(url)
//	reduced, changed, err := svc.ReducePalette(ctx, data)
//	if err == nil && changed {
//	    data = reduced
//	}
type ImageService struct {
	quantizer quantize.MedianCutQuantizer
}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{}
}

// ReducePalette re-encodes an image as a paletted PNG with at most
// PaletteSize colors.
//
// Images that are already paletted are returned unchanged with changed set
// to false. The palette is chosen by median cut and pixels are mapped onto
// their nearest palette entry.
//
// Parameters:
//   - ctx: Context for cancellation, checked before each image pass
//   - data: Original image data (PNG, JPEG or GIF)
//
// Returns PNG-encoded bytes.
func (s *ImageService) ReducePalette(ctx context.Context, data []byte) (out []byte, changed bool, err error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, err
	}
	if _, ok := img.(*image.Paletted); ok {
		return data, false, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	pal := s.quantizer.Quantize(make(color.Palette, 0, PaletteSize), img)
	if len(pal) == 0 {
		pal = append(pal, color.Transparent)
	}

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	bounds := img.Bounds()
	dst := image.NewPaletted(bounds, pal)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, false, err
	}
	return buf.Bytes(), true, nil
}
