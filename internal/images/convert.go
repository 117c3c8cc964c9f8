package images

import (
	"fmt"
	"image"
	"image/png"
	"io"

	"golang.org/x/image/draw"
)

// ConvertPNG decodes a png and packs it into a Bitmap. When width or height
// is positive the picture is first scaled to that size, a zero dimension
// keeping the aspect ratio.
func ConvertPNG(r io.Reader, width int, height int) (Bitmap, error) {
	img, err := png.Decode(r)
	if err != nil {
		return Bitmap{}, fmt.Errorf("unable to decode png: %w", err)
	}

	bounds := img.Bounds()
	if width < 0 || height < 0 {
		return Bitmap{}, fmt.Errorf("invalid target size %dx%d", width, height)
	}
	if width == 0 && height == 0 {
		return Pack(img), nil
	}
	if width == 0 {
		width = bounds.Dx() * height / bounds.Dy()
	}
	if height == 0 {
		height = bounds.Dy() * width / bounds.Dx()
	}
	if width == 0 || height == 0 {
		return Bitmap{}, fmt.Errorf("target size %dx%d is empty", width, height)
	}

	scaled := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)
	return Pack(scaled), nil
}
