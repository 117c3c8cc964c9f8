package images

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlphaDecodesBatteryOutline(t *testing.T) {
	img := battery0.Alpha()
	require.Equal(t, image.Rect(0, 0, 16, 8), img.Bounds())

	// 0x7F 0xFE: top edge spans columns 1..14
	assert.Equal(t, uint8(0), img.AlphaAt(0, 1).A)
	assert.Equal(t, uint8(0xff), img.AlphaAt(1, 1).A)
	assert.Equal(t, uint8(0xff), img.AlphaAt(14, 1).A)
	assert.Equal(t, uint8(0), img.AlphaAt(15, 1).A)

	// empty interior
	assert.Equal(t, uint8(0), img.AlphaAt(7, 3).A)
	assert.Equal(t, uint8(0xff), battery100.Alpha().AlphaAt(7, 3).A)
}

func TestPackMatchesShieldAssets(t *testing.T) {
	for _, b := range []Bitmap{battery0, battery25, battery50, battery100, usbPlug} {
		assert.Equal(t, b, Pack(b.Alpha()))
	}
}

func TestPackThresholdsAndPadsRows(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 2))
	img.Set(0, 0, color.White)
	img.Set(9, 0, color.RGBA{200, 200, 200, 255})
	img.Set(1, 1, color.RGBA{60, 60, 60, 255})
	img.Set(2, 1, color.RGBA{255, 255, 255, 0})

	b := Pack(img)
	assert.Equal(t, 2, b.Stride())
	assert.Equal(t, []byte{0x80, 0x40, 0x00, 0x00}, b.Data)
}

func TestWriteGoSource(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGoSource(&buf, "assets", "P1Keyboard", battery25))

	src := buf.String()
	assert.Contains(t, src, "package assets")
	assert.Contains(t, src, "var P1Keyboard = images.Bitmap{")
	assert.Contains(t, src, "Width:  16,")
	assert.Contains(t, src, "0x43, 0x02")
}

func TestFrameTable(t *testing.T) {
	require.Len(t, BatteryFrames, 4)
	assert.Same(t, BatteryFrames[3], BatteryFullImage)
	assert.Equal(t, image.Rect(0, 0, ScreenWidth, ScreenHeight), SplashImage.Bounds())
}
