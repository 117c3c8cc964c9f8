package images

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

func checkerboard(width, height, cell int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 0xff})
			}
		}
	}
	return img
}

func TestConvertKeepsSize(t *testing.T) {
	b, err := ConvertPNG(encodePNG(t, checkerboard(16, 2, 1)), 0, 0)
	require.NoError(t, err)

	assert.Equal(t, 16, b.Width)
	assert.Equal(t, 2, b.Height)
	assert.Equal(t, []byte{0xaa, 0xaa, 0x55, 0x55}, b.Data)
}

func TestConvertScales(t *testing.T) {
	b, err := ConvertPNG(encodePNG(t, checkerboard(32, 8, 2)), 16, 0)
	require.NoError(t, err)

	assert.Equal(t, 16, b.Width)
	assert.Equal(t, 4, b.Height)
	assert.Equal(t, []byte{0xaa, 0xaa, 0x55, 0x55, 0xaa, 0xaa, 0x55, 0x55}, b.Data)
}

func TestConvertRejectsGarbage(t *testing.T) {
	_, err := ConvertPNG(strings.NewReader("GIF89a"), 0, 0)
	assert.Error(t, err)

	_, err = ConvertPNG(encodePNG(t, checkerboard(4, 4, 1)), -1, 0)
	assert.Error(t, err)
}
